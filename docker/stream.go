package docker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/oar-cd/skiff/domain"
)

// jsonStream decodes the newline-delimited JSON messages of a build response
type jsonStream struct {
	body io.ReadCloser
	dec  *json.Decoder
}

func newJSONStream(body io.ReadCloser) *jsonStream {
	return &jsonStream{body: body, dec: json.NewDecoder(body)}
}

func (s *jsonStream) Next() (domain.BuildEvent, error) {
	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.BuildEvent{}, io.EOF
		}
		return domain.BuildEvent{}, fmt.Errorf("failed to decode build output: %w", err)
	}
	return classify(raw), nil
}

func (s *jsonStream) Close() error {
	return s.body.Close()
}

// classify maps one engine message to a build event. Error-bearing messages win over
// everything else; messages carrying neither output nor error are kept verbatim.
func classify(raw json.RawMessage) domain.BuildEvent {
	var msg jsonmessage.JSONMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.UnknownEvent(string(raw))
	}

	errText := strings.TrimSpace(msg.ErrorMessage)
	if msg.Error != nil && strings.TrimSpace(msg.Error.Message) != "" {
		errText = strings.TrimSpace(msg.Error.Message)
	}
	if errText != "" {
		event := domain.ErrorEvent(errText)
		event.Raw = string(raw)
		return event
	}

	if msg.Stream != "" {
		event := domain.ProgressEvent(msg.Stream)
		event.Raw = string(raw)
		return event
	}

	if msg.Status != "" {
		parts := make([]string, 0, 3)
		if id := strings.TrimSpace(msg.ID); id != "" {
			parts = append(parts, id)
		}
		parts = append(parts, strings.TrimSpace(msg.Status))
		if msg.Progress != nil {
			if p := strings.TrimSpace(msg.Progress.String()); p != "" {
				parts = append(parts, p)
			}
		}
		event := domain.ProgressEvent(strings.Join(parts, " ") + "\n")
		event.Raw = string(raw)
		return event
	}

	return domain.UnknownEvent(string(raw))
}
