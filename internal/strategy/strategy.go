package strategy

// Strategy picks a backend index from a health snapshot. ok is false when
// no index in healthy is usable.
type Strategy interface {
	Next(healthy []bool) (index int, ok bool)
}
