package config

// Backend abstracts config storage. The default is a JSON file in the
// user's XDG config directory; tests supply an in-memory implementation.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
