package notification

import (
	"io"
	"log"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.uber.org/zap"
)

// Broadcaster mirrors short operational messages to shoutrrr service URLs
// (slack://, telegram://, generic+https://, ...).
type Broadcaster struct {
	sender *router.ServiceRouter
	log    *zap.Logger
}

// NewBroadcaster returns nil, nil when urls is empty.
func NewBroadcaster(urls []string, timeout time.Duration, lg *zap.Logger) (*Broadcaster, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &Broadcaster{sender: sender, log: lg}, nil
}

// Broadcast sends message to every configured service. Failures are logged
// and returned joined; callers treat them as non-fatal.
func (b *Broadcaster) Broadcast(title, message string) []error {
	if b == nil {
		return nil
	}
	p := types.Params{}
	if title != "" {
		p.SetTitle(title)
	}
	var failed []error
	for _, err := range b.sender.Send(message, &p) {
		if err != nil {
			b.log.Warn("broadcast delivery failed", zap.Error(err))
			failed = append(failed, err)
		}
	}
	return failed
}
