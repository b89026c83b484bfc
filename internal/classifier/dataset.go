package classifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/tbourn/go-order-assistant/internal/domain"
)

//go:embed dataset.json
var embeddedDataset []byte

// IntentData holds the labeled examples and canned replies for one intent.
type IntentData struct {
	Examples  []string `json:"examples"`
	Responses []string `json:"responses"`
}

// Dataset is the training corpus. Unknown intent labels are rejected on load.
type Dataset struct {
	Intents  map[string]IntentData `json:"intents"`
	Entities map[string][]string   `json:"entities"`
}

// DefaultDataset parses the corpus compiled into the binary.
func DefaultDataset() (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(embeddedDataset, &ds); err != nil {
		return nil, fmt.Errorf("embedded dataset: %w", err)
	}
	return &ds, ds.validate()
}

// LoadDataset decodes a dataset in the same JSON shape as the embedded one.
func LoadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, ds.validate()
}

func (d *Dataset) validate() error {
	if len(d.Intents) == 0 {
		return ErrEmptyDataset
	}
	for name := range d.Intents {
		if domain.ParseIntent(name) == domain.IntentUnknown {
			return fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		}
	}
	return nil
}

// Labels returns the intent names in sorted order.
func (d *Dataset) Labels() []string {
	out := make([]string, 0, len(d.Intents))
	for k := range d.Intents {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Response returns the first canned reply for the intent, or "" when there is none.
func (d *Dataset) Response(in domain.Intent) string {
	if d == nil {
		return ""
	}
	if r := d.Intents[string(in)].Responses; len(r) > 0 {
		return r[0]
	}
	return ""
}
