package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/g-m-twostay/cht"
)

// workload describes one stress run.
type workload struct {
	Table cht.Config `yaml:"table"`

	// Writers each own Keys keys and fill and drain them in waves.
	Writers int `yaml:"writers"`
	Keys    int `yaml:"keys"`
	// Readers look up the Pinned keys, which are never removed.
	Readers int `yaml:"readers"`
	Pinned  int `yaml:"pinned"`

	Duration time.Duration `yaml:"duration"`
	Seed     int64         `yaml:"seed"`
}

func defaultWorkload() workload {
	w := workload{
		Writers:  4,
		Keys:     20000,
		Readers:  4,
		Pinned:   1000,
		Duration: 10 * time.Second,
		Seed:     1,
	}
	// the table defaults are the defaults of its flags.
	w.Table.RegisterFlags(flag.NewFlagSet("defaults", flag.ContinueOnError))
	return w
}

func (w *workload) Validate() error {
	if err := w.Table.Validate(); err != nil {
		return errors.Wrap(err, "invalid table config")
	}
	switch {
	case w.Writers <= 0:
		return errors.Errorf("writers must be positive, got %d", w.Writers)
	case w.Keys <= 0:
		return errors.Errorf("keys must be positive, got %d", w.Keys)
	case w.Readers < 0 || w.Pinned < 0:
		return errors.Errorf("readers and pinned keys must not be negative, got %d and %d", w.Readers, w.Pinned)
	case w.Readers > 0 && w.Pinned == 0:
		return errors.New("readers need pinned keys to look up")
	case w.Duration <= 0:
		return errors.Errorf("duration must be positive, got %v", w.Duration)
	}
	return nil
}

// workloadFlags are the global flags that select and override the workload.
type workloadFlags struct {
	file     string
	writers  int
	keys     int
	readers  int
	duration time.Duration
	seed     int64
}

func (f *workloadFlags) register(app *kingpin.Application) {
	app.Flag("config", "Workload YAML file; flags override its values.").Short('c').ExistingFileVar(&f.file)
	app.Flag("writers", "Number of writer goroutines.").IntVar(&f.writers)
	app.Flag("keys", "Number of keys owned by each writer.").IntVar(&f.keys)
	app.Flag("readers", "Number of reader goroutines.").IntVar(&f.readers)
	app.Flag("duration", "How long to run.").DurationVar(&f.duration)
	app.Flag("seed", "Seed of the writers' random sources.").Int64Var(&f.seed)
}

// load builds the effective workload: defaults, then the file, then the flags that were given.
func (f *workloadFlags) load() (workload, error) {
	w := defaultWorkload()
	if f.file != "" {
		buf, err := os.ReadFile(f.file)
		if err != nil {
			return w, errors.Wrap(err, "reading workload")
		}
		if err := yaml.Unmarshal(buf, &w); err != nil {
			return w, errors.Wrapf(err, "parsing workload %s", f.file)
		}
	}
	if f.writers != 0 {
		w.Writers = f.writers
	}
	if f.keys != 0 {
		w.Keys = f.keys
	}
	if f.readers != 0 {
		w.Readers = f.readers
	}
	if f.duration != 0 {
		w.Duration = f.duration
	}
	if f.seed != 0 {
		w.Seed = f.seed
	}
	return w, w.Validate()
}

func addConfigCommand(app *kingpin.Application, f *workloadFlags) {
	app.Command("config", "Print the effective workload as YAML.").Action(func(*kingpin.ParseContext) error {
		w, err := f.load()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(w)
		if err != nil {
			return errors.Wrap(err, "encoding workload")
		}
		fmt.Print(string(out))
		return nil
	})
}
