package entity

// LinkText is an anchor kept from the source post. Text is the matching key for
// download candidates and is never empty for them.
type LinkText struct {
	Link string
	Text string
}

// Anchor is a raw anchor as scraped, before classification.
type Anchor struct {
	Href string
	Text string
}

type HostKind int

const (
	HostDirect HostKind = iota
	HostVault
	HostUnsupported
)

func (k HostKind) String() string {
	return [...]string{"Direct", "Vault", "Unsupported"}[k]
}
