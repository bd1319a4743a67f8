package tele

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/log2"
)

type transportMqtt struct {
	log    *log2.Log
	m      mqtt.Client
	mopt   *mqtt.ClientOptions
	stopCh chan struct{}
	// test code sets newClient
	newClient func(*mqtt.ClientOptions) mqtt.Client

	topicState string
	topicEvent string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig Config, willPayload []byte) error {
	self.log = log
	mqttLog := log.Clone(log2.LInfo)
	mqttLog.SetPrefix("mqtt: ")
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}
	if teleConfig.MqttBroker == "" {
		return errors.NotValidf("tele.mqtt_broker=empty")
	}

	clientId := teleConfig.DeviceId
	credFun := func() (string, string) {
		return clientId, teleConfig.MqttPassword
	}
	prefix := teleConfig.topicPrefix()
	self.topicState = prefix + "/state"
	self.topicEvent = prefix + "/event"

	networkTimeout := helpers.IntSecondDefault(teleConfig.NetworkTimeoutSec, defaultNetworkTimeout)
	if networkTimeout < 1*time.Second {
		networkTimeout = 1 * time.Second
	}
	connectTimeout := networkTimeout * 3
	keepaliveTimeout := helpers.IntSecondDefault(teleConfig.KeepaliveSec, networkTimeout/2)

	tlsconf := new(tls.Config)
	if teleConfig.TlsCaFile != "" {
		cabytes, err := ioutil.ReadFile(teleConfig.TlsCaFile)
		if err != nil {
			return errors.Annotate(err, "tele.tls_ca_file")
		}
		tlsconf.RootCAs = x509.NewCertPool()
		if !tlsconf.RootCAs.AppendCertsFromPEM(cabytes) {
			return errors.NotValidf("tele.tls_ca_file=%s no certificates", teleConfig.TlsCaFile)
		}
	}
	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicState, willPayload, 1, true).
		SetCleanSession(false).
		SetClientID(clientId).
		SetConnectTimeout(connectTimeout).
		SetCredentialsProvider(credFun).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetPingTimeout(networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(networkTimeout)
	if self.newClient == nil {
		self.newClient = mqtt.NewClient
	}
	self.m = self.newClient(self.mopt)
	self.stopCh = make(chan struct{})

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	close(self.stopCh)
	self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
}

func (self *transportMqtt) SendState(payload []byte) bool {
	t := self.m.Publish(self.topicState, 1, true, payload)
	err := self.tokenWait(t, "publish state")
	self.log.Debugf("tele sendstate payload=%x err=%v", payload, err)
	return err == nil
}

func (self *transportMqtt) SendEvent(payload []byte) bool {
	t := self.m.Publish(self.topicEvent, 1, false, payload)
	err := self.tokenWait(t, "publish event")
	return err == nil
}

func (self *transportMqtt) online() {
	for self.isRunning() {
		if self.m.IsConnected() {
			return
		}
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			self.log.Debugf("tele connected")
			return // success path
		}
		select {
		case <-time.After(1 * time.Second):
		case <-self.stopCh:
			return
		}
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, tag string) error {
	if !t.Wait() {
		err := errors.Timeoutf(tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
