package domain

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	return []string{"Buy", "Sell"}[s]
}
