package domain

// Metadata represents the off-chain token metadata section.
// The zero value means "no metadata section".
type Metadata struct {
	Present     bool
	Name        string // display name
	Symbol      string // ticker
	Description string
	Image       string // image url
	Twitter     string // project twitter link
	Website     string
	Telegram    string
	ShowName    bool
	CreatedOn   string // launchpad attribution
}
