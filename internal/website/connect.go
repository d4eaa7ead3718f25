package website

import (
	"context"
	"errors"

	"github.com/maheshrc27/postflow/internal/models"
)

var ErrNoConnector = errors.New("website does not connect accounts through oauth")

// Connection is the result of an oauth code exchange.
type Connection struct {
	Alias string
	Data  map[string]any
}

// Connector is implemented by destinations whose accounts are added through
// an oauth redirect. state is returned unchanged to the callback.
type Connector interface {
	AuthURL(state string) string
	Connect(ctx context.Context, code string) (*Connection, error)
	Disconnect(ctx context.Context, account *models.Account) error
}

// ConnectorFor returns w's Connector, if it has one.
func ConnectorFor(w Website) (Connector, error) {
	c, ok := w.(Connector)
	if !ok {
		return nil, ErrNoConnector
	}
	return c, nil
}
