// Package script loads step scripts: a channel configuration plus the
// writes each step delivers, used to replay runs from the command line.
package script

import (
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/avi3tal/pregel/pkg/channels"
	"github.com/avi3tal/pregel/pkg/pregel"
)

// ChannelDef configures one channel. Kind defaults to topic.
type ChannelDef struct {
	Kind       string   `mapstructure:"kind"`
	Accumulate bool     `mapstructure:"accumulate"`
	Names      []string `mapstructure:"names"`
}

// Script is a decoded step script. Each step maps a channel name to the
// writes it receives in that step.
type Script struct {
	Graph    string                `mapstructure:"graph"`
	Channels map[string]ChannelDef `mapstructure:"channels"`
	Steps    []map[string][]any    `mapstructure:"steps"`
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	return Parse(data)
}

// Parse decodes a YAML script. A scalar where a list of writes is expected
// is treated as a single write.
func Parse(data []byte) (*Script, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse script yaml")
	}

	var s Script
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &s,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode script")
	}

	if s.Graph == "" {
		s.Graph = "script"
	}
	if len(s.Channels) == 0 {
		return nil, errors.New("script declares no channels")
	}
	for i, step := range s.Steps {
		for name := range step {
			if _, ok := s.Channels[name]; !ok {
				return nil, errors.Errorf("step %d writes to undeclared channel %q", i+1, name)
			}
		}
	}
	return &s, nil
}

// Slots builds empty channels for the script's configuration.
func (s *Script) Slots() (map[string]channels.Slot, error) {
	slots := make(map[string]channels.Slot, len(s.Channels))
	for name, def := range s.Channels {
		switch channels.Kind(def.Kind) {
		case "", channels.KindTopic:
			slots[name] = channels.TopicSlot[any](def.Accumulate)
		case channels.KindLastValue:
			slots[name] = channels.LastValueSlot[any]()
		case channels.KindNamedBarrier:
			if len(def.Names) == 0 {
				return nil, errors.Errorf("channel %q: named barrier needs names", name)
			}
			slots[name] = channels.NamedBarrierSlot(def.Names)
		default:
			return nil, errors.Errorf("channel %q: unknown kind %q", name, def.Kind)
		}
	}
	return slots, nil
}

// Writes returns the writes of step i (zero based), ordered by channel name
// and then by position in the script.
func (s *Script) Writes(i int) []pregel.Write {
	step := s.Steps[i]
	names := make([]string, 0, len(step))
	for name := range step {
		names = append(names, name)
	}
	sort.Strings(names)

	var writes []pregel.Write
	for _, name := range names {
		for _, v := range step[name] {
			writes = append(writes, pregel.Write{Channel: name, Value: v})
		}
	}
	return writes
}
