package tools

import "fmt"

// Kind is the closed set of tools the agent can call. Tool names coming
// back from the model are parsed into a Kind before anything is executed.
type Kind int

const (
	KindUnknown Kind = iota
	KindTrendSearch
	KindImageGeneration
	KindProductTrends
	KindProductCatalog
)

var kindNames = map[Kind]string{
	KindTrendSearch:     "trend_search_tool",
	KindImageGeneration: "dalle_api_tool",
	KindProductTrends:   "product_trends_tool",
	KindProductCatalog:  "product_catalog_tool",
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindTrendSearch, KindImageGeneration, KindProductTrends, KindProductCatalog}
}

// String returns the name the model uses to call the tool.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a tool name to its Kind.
// Unknown names return an error matching ErrToolNotFound.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return KindUnknown, &NotFoundError{Name: name}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid tool kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
