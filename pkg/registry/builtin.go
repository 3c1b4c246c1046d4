package registry

import (
	"log/slog"

	"github.com/loomhq/loom/pkg/adapters/chat"
	"github.com/loomhq/loom/pkg/adapters/condition"
	"github.com/loomhq/loom/pkg/adapters/datastore"
	"github.com/loomhq/loom/pkg/adapters/email"
	"github.com/loomhq/loom/pkg/adapters/formatter"
	"github.com/loomhq/loom/pkg/adapters/payment"
)

// NewDefaultRegistry creates a registry with every built-in adapter
// family registered.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)

	reg.Register(payment.NewFactory())
	reg.Register(email.NewFactory())
	reg.Register(chat.NewFactory())
	reg.Register(datastore.NewFactory())
	reg.Register(formatter.NewFactory())
	reg.Register(condition.NewFactory())

	return reg
}
