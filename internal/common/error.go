package common

import "fmt"

var (
	ErrNotFound        = fmt.Errorf("element not found")
	ErrMalformedURL    = fmt.Errorf("malformed url")
	ErrMalformedData   = fmt.Errorf("malformed data")
	ErrInvalidLink     = fmt.Errorf("invalid link")
	ErrUnsupportedHost = fmt.Errorf("unsupported host")
	ErrTimeout         = fmt.Errorf("timeout")
	ErrNoLinks         = fmt.Errorf("no links found")
	ErrSpawn           = fmt.Errorf("cannot spawn process")
	ErrNoExecutable    = fmt.Errorf("executable not found")
	ErrConfigLoad      = fmt.Errorf("cannot load app config")
	ErrStoreNotFound   = fmt.Errorf("app config not found")
)
