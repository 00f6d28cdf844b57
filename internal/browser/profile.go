package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// VisitProfile loads a profile page and returns its rendered content.
func (s *Session) VisitProfile(ctx context.Context, profileURL string) (string, error) {
	page, err := s.newPage(ctx)
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := s.loadPage(page, profileURL); err != nil {
		return "", err
	}
	return pageText(page)
}

// ConnectResult describes what happened when a connection request was attempted.
type ConnectResult string

const (
	// ConnectSent means the invitation went out.
	ConnectSent ConnectResult = "sent"
	// ConnectUnavailable means no Connect button was found — typically an
	// existing connection or a restricted profile.
	ConnectUnavailable ConnectResult = "unavailable"
)

// SendConnectionRequest opens the profile and attempts to send an invitation,
// optionally with a note. An absent Connect button is an expected outcome,
// not an error.
func (s *Session) SendConnectionRequest(ctx context.Context, profileURL, note string, includeNote bool) (ConnectResult, error) {
	log := zap.L().With(zap.String("component", "outreach"), zap.String("url", profileURL))

	page, err := s.newPage(ctx)
	if err != nil {
		return ConnectUnavailable, err
	}
	defer page.Close()

	if err := s.loadPage(page, profileURL); err != nil {
		return ConnectUnavailable, err
	}

	connect, found := findButton(page, "Connect")
	if !found {
		// The Connect action is often tucked under the More menu.
		if more, ok := findButton(page, "More"); ok {
			if err := click(more); err == nil {
				time.Sleep(800 * time.Millisecond)
				connect, found = findButton(page, "Connect")
			}
		}
	}
	if !found {
		log.Info("no connect button found, skipping outreach")
		return ConnectUnavailable, nil
	}

	if err := click(connect); err != nil {
		return ConnectUnavailable, eris.Wrap(err, "browser: click connect")
	}
	time.Sleep(800 * time.Millisecond)

	if includeNote && note != "" {
		addNote, ok := findButton(page, "Add a note")
		if !ok {
			return ConnectUnavailable, eris.New("browser: add-a-note button not found")
		}
		if err := click(addNote); err != nil {
			return ConnectUnavailable, eris.Wrap(err, "browser: click add a note")
		}
		field, err := page.Timeout(5 * time.Second).Element(`textarea[name="message"]`)
		if err != nil {
			return ConnectUnavailable, eris.Wrap(err, "browser: note field not found")
		}
		if err := field.Input(note); err != nil {
			return ConnectUnavailable, eris.Wrap(err, "browser: type note")
		}
		send, ok := findButton(page, "Send")
		if !ok {
			return ConnectUnavailable, eris.New("browser: send button not found")
		}
		if err := click(send); err != nil {
			return ConnectUnavailable, eris.Wrap(err, "browser: click send")
		}
		log.Info("connection request sent with note")
		return ConnectSent, nil
	}

	send, ok := findButton(page, "Send without a note")
	if !ok {
		send, ok = findButton(page, "Send")
	}
	if !ok {
		return ConnectUnavailable, eris.New("browser: send button not found")
	}
	if err := click(send); err != nil {
		return ConnectUnavailable, eris.Wrap(err, "browser: click send")
	}
	log.Info("connection request sent without note")
	return ConnectSent, nil
}

// findButton locates a visible button whose accessible text matches label.
func findButton(page *rod.Page, label string) (*rod.Element, bool) {
	el, err := page.Timeout(5 * time.Second).ElementR("button", label)
	if err != nil {
		return nil, false
	}
	return el, true
}

func click(el *rod.Element) error {
	return el.Click(proto.InputMouseButtonLeft, 1)
}
