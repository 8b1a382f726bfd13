package events

import "github.com/kbukum/foundation/response"

// HTTPResponseCreatedName is the name HTTPResponseCreated is dispatched under.
const HTTPResponseCreatedName = "http_response_created"

// HTTPResponseCreated is dispatched after every HTTP exchange with the
// captured, rewound response.
type HTTPResponseCreated struct {
	Method   string
	URL      string
	Response *response.Envelope
}

// Name implements Event.
func (HTTPResponseCreated) Name() string { return HTTPResponseCreatedName }
