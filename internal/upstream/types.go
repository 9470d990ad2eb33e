package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CatalogEntry is one manufacturable item in a catalog result. Beyond the
// identifying fields the payload is opaque to this core and is carried
// verbatim for display.
type CatalogEntry struct {
	TypeID   int32
	TypeName string
	Raw      json.RawMessage
}

func (e *CatalogEntry) UnmarshalJSON(data []byte) error {
	var head struct {
		Product struct {
			TypeID   int32  `json:"typeID"`
			TypeName string `json:"typeName"`
		} `json:"product"`
		TypeID   int32  `json:"typeID"`
		TypeName string `json:"typeName"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	e.TypeID = head.TypeID
	e.TypeName = head.TypeName
	// Catalog rows nest the item under "product"; tolerate both shapes.
	if head.Product.TypeID != 0 {
		e.TypeID = head.Product.TypeID
		e.TypeName = head.Product.TypeName
	}
	e.Raw = append(e.Raw[:0], data...)
	return nil
}

func (e CatalogEntry) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(map[string]any{"typeID": e.TypeID, "typeName": e.TypeName})
}

// LocalizedName carries an item name per language.
type LocalizedName struct {
	DE string `json:"de,omitempty"`
	EN string `json:"en,omitempty"`
	FR string `json:"fr,omitempty"`
	JA string `json:"ja,omitempty"`
	RU string `json:"ru,omitempty"`
	ZH string `json:"zh,omitempty"`
}

// String returns the English name, the display language of the dashboard.
func (n LocalizedName) String() string { return n.EN }

// Material is one input to a build. Quantity arrives pre-rounded upstream.
type Material struct {
	Key      string
	Quantity float64       `json:"quantity"`
	Name     LocalizedName `json:"name"`
}

// MaterialList preserves the upstream JSON object's key order, which Go maps
// would lose. The material export depends on that order.
type MaterialList []Material

func (ml *MaterialList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*ml = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("materials: expected object, got %v", tok)
	}

	var out MaterialList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("materials: reading key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("materials: non-string key %v", keyTok)
		}

		var m Material
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("materials[%s]: %w", key, err)
		}
		m.Key = key
		out = append(out, m)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*ml = out
	return nil
}

func (ml MaterialList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range ml {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		entry, err := json.Marshal(struct {
			Quantity float64       `json:"quantity"`
			Name     LocalizedName `json:"name"`
		}{m.Quantity, m.Name})
		if err != nil {
			return nil, err
		}
		buf.Write(entry)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ManufacturingResult is the per-item build answer for one
// (typeID, ME, TE, facilityTax) tuple. Cost and profit figures are computed
// upstream and passed through untouched.
type ManufacturingResult struct {
	IsTech2   bool            `json:"isTech2"`
	ME        int             `json:"me"`
	TE        int             `json:"te"`
	Materials MaterialList    `json:"materials"`
	Costs     json.RawMessage `json:"costs,omitempty"`
	Revenue   json.RawMessage `json:"revenue,omitempty"`
	Profit    json.RawMessage `json:"profit,omitempty"`
}
