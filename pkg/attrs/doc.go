// Package attrs provides the key/value payload carried by every bus message.
//
// An Attributes value maps string keys to tagged values. The small set of
// kinds actually exchanged between components is explicit:
//
//	a := attrs.New()
//	a.SetInt("count", 3)
//	a.SetString("data", "42")
//
//	n, err := a.Int("count")       // 3, nil
//	_, err = a.String("count")     // TypeMismatchError
//	_, err = a.Int("missing")      // ErrKeyNotFound
//
// The bus freezes the attributes it delivers so the same container can be
// handed to every subscriber. Writing to a frozen container panics with
// ErrFrozen; use Clone to obtain a writable copy.
package attrs
