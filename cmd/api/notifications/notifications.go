package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/books-isbn-service/cmd/api/book"
)

const bookCreatedTopic = "new_book_created"

// Ntfy publishes plain text messages to topics of an ntfy server.
type Ntfy struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func NewNtfy(notificationsBaseURL string, notificationsTimeout time.Duration, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{}
	}
	return &Ntfy{
		baseURL: strings.TrimRight(notificationsBaseURL, "/"),
		timeout: notificationsTimeout,
		client:  client,
	}
}

func BookCreatedMessage(b book.Book) string {
	return fmt.Sprintf("New book created: Title: %s Author: %s ISBN: %s", b.Title, b.Author, b.ISBN)
}

func (ntf *Ntfy) BookCreated(ctx context.Context, b book.Book) error {
	if ntf.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ntf.timeout)
		defer cancel()
	}

	topicURL := ntf.baseURL + "/" + bookCreatedTopic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topicURL, strings.NewReader(BookCreatedMessage(b)))
	if err != nil {
		return fmt.Errorf("delivering message to topic %s: %w", topicURL, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering message to topic %s: %w", topicURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return NewErrNotificationFailed(resp.StatusCode)
	}
	return nil
}

type ErrNotificationFailed struct {
	statusCode int
}

func (e ErrNotificationFailed) Error() string {
	return fmt.Sprintf("ntfy wrong response - want: 200 OK, got: %d", e.statusCode)
}

func NewErrNotificationFailed(statusCode int) ErrNotificationFailed {
	return ErrNotificationFailed{statusCode: statusCode}
}
