package gamma

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Market is one raw listing from the Gamma API, normalized at the parsing
// boundary. Gamma encodes numbers and arrays inconsistently (quoted floats,
// arrays serialized as strings), so the loose fields get dedicated types.
type Market struct {
	ID            string         `json:"id"`
	Question      string         `json:"question"`
	Description   string         `json:"description"`
	OutcomePrices StringList     `json:"outcomePrices"`
	Volume        FloatString    `json:"volume"`
	Volume24h     FloatString    `json:"volume24hr"`
	Liquidity     FloatString    `json:"liquidity"`
	Active        bool           `json:"active"`
	Closed        bool           `json:"closed"`
	Resolved      bool           `json:"resolved"`
	Outcome       string         `json:"outcome"`
	EndDate       NormalizedTime `json:"endDate"`

	Raw json.RawMessage `json:"-"`
}

// YesPrice returns the first outcome price, by Gamma convention the YES side.
func (m *Market) YesPrice() (float64, bool) {
	return m.priceAt(0)
}

func (m *Market) NoPrice() (float64, bool) {
	return m.priceAt(1)
}

func (m *Market) priceAt(idx int) (float64, bool) {
	if m == nil || idx >= len(m.OutcomePrices) {
		return 0, false
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(m.OutcomePrices[idx]), 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// FloatString accepts a JSON number, a quoted number, or null/empty as zero.
type FloatString float64

func (f *FloatString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if s[0] == '"' {
		var quoted string
		if err := json.Unmarshal(data, &quoted); err != nil {
			return err
		}
		quoted = strings.TrimSpace(quoted)
		if quoted == "" {
			*f = 0
			return nil
		}
		val, err := strconv.ParseFloat(quoted, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", quoted, err)
		}
		*f = FloatString(val)
		return nil
	}
	var val float64
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	*f = FloatString(val)
	return nil
}

func (f FloatString) Float64() float64 {
	return float64(f)
}

// StringList accepts a JSON array of strings or the same array serialized as
// a single JSON string, which is how Gamma ships outcomePrices.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*l = nil
		return nil
	}
	if s[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		*l = nil
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(inner), &items); err != nil {
		return fmt.Errorf("invalid string-encoded array %q: %w", inner, err)
	}
	*l = items
	return nil
}

// NormalizedTime parses the timestamp formats Gamma uses; zero when absent.
type NormalizedTime struct {
	time.Time
}

func (t *NormalizedTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	// Unknown formats degrade to zero rather than failing the whole listing.
	t.Time = time.Time{}
	return nil
}

func (t NormalizedTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	val := t.UTC()
	return &val
}

func parseMarkets(body []byte) ([]Market, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse markets response: %w", err)
	}
	out := make([]Market, 0, len(raws))
	for _, raw := range raws {
		var m Market
		if err := json.Unmarshal(raw, &m); err != nil {
			// Malformed entry: quarantined here, never propagated inward.
			continue
		}
		m.Raw = raw
		out = append(out, m)
	}
	return out, nil
}

func parseMarket(body []byte) (*Market, error) {
	var m Market
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to parse market response: %w", err)
	}
	m.Raw = body
	return &m, nil
}
