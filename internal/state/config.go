package state

import (
	"path/filepath"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/battwatch/hardware/modem"
	"github.com/temoto/battwatch/hardware/rfm9x"
	"github.com/temoto/battwatch/helpers"
	"github.com/temoto/battwatch/internal/alert"
	"github.com/temoto/battwatch/internal/journal"
	"github.com/temoto/battwatch/internal/metrics"
	"github.com/temoto/battwatch/internal/persist"
	"github.com/temoto/battwatch/internal/tele"
	"github.com/temoto/battwatch/log2"
)

const DefaultPersistRoot = "./battwatch-db"

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Radio   rfm9x.Config   `hcl:"radio"`
	Modem   modem.Config   `hcl:"modem"`
	Alert   alert.Config   `hcl:"alert"`
	Journal journal.Config `hcl:"journal"`
	Persist persist.Config `hcl:"persist"`
	Tele    tele.Config    `hcl:"tele"`
	Metrics metrics.Config `hcl:"metrics"`

	LogDebug bool `hcl:"log_debug"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// Validate fills defaults and reports all problems at once.
// Radio and modem are validated when opened.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if err := c.Alert.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "config"))
	}
	if c.Persist.Root == "" {
		c.Persist.Root = DefaultPersistRoot
	}
	if c.Journal.Path == "" {
		c.Journal.Path = journal.DefaultPath
	}
	if c.Tele.PersistPath == "" {
		c.Tele.PersistPath = filepath.Join(c.Persist.Root, "tele")
	}
	if c.Tele.Enabled && c.Tele.DeviceId == "" {
		errs = append(errs, errors.NotValidf("config: tele.device_id=empty"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			*errs = append(*errs, errors.NotFoundf("config required name=%s path=%s", source.Name, norm))
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	if err = hcl.Unmarshal(bs, c); err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config unmarshal source=%s", source.Name))
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			*errs = append(*errs, errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name))
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
