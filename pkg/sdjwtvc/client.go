package sdjwtvc

// Client is the namespace for the credential build and verify operations in
// this package. It carries no state of its own today; callers construct one
// with New and call through it.
type Client struct{}

// New returns a ready-to-use Client.
func New() *Client {
	return &Client{}
}
