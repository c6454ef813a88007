package domain

import "fmt"

type Venue int

const (
	Binance Venue = iota
	Coinbase
	Kraken
	CoinGecko
	Mock
)

var venueNames = []string{"Binance", "Coinbase", "Kraken", "CoinGecko", "Mock"}

func (v Venue) String() string {
	if v < Binance || v > Mock {
		return fmt.Sprintf("Venue(%d)", int(v))
	}
	return venueNames[v]
}

// ParseVenue resolves a venue by exact name. Unknown names are an error;
// nothing falls through to Mock implicitly.
func ParseVenue(name string) (Venue, error) {
	for i, n := range venueNames {
		if n == name {
			return Venue(i), nil
		}
	}
	return 0, fmt.Errorf("unknown venue %q", name)
}

func (v Venue) MarshalJSON() ([]byte, error) {
	if v < Binance || v > Mock {
		return nil, fmt.Errorf("unknown venue %d", int(v))
	}
	return []byte(`"` + venueNames[v] + `"`), nil
}

func (v *Venue) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("venue must be a JSON string, got %s", data)
	}
	parsed, err := ParseVenue(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
