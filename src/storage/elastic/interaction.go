package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"kbchat/src/core/assistant"
)

const defaultIndex = "kbchat-interactions"

// InteractionLog indexes question/answer exchanges into Elasticsearch for
// offline evaluation. It implements assistant.InteractionLogger.
type InteractionLog struct {
	client *elasticsearch.Client
	index  string
}

func NewInteractionLog(addresses []string, username, password, index string) (*InteractionLog, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}
	if username != "" {
		cfg.Username = username
		cfg.Password = password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	if index == "" {
		index = defaultIndex
	}

	return &InteractionLog{
		client: client,
		index:  index,
	}, nil
}

func (l *InteractionLog) LogInteraction(ctx context.Context, entry assistant.Interaction) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode interaction: %w", err)
	}

	res, err := l.client.Index(
		l.index,
		bytes.NewReader(payload),
		l.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index interaction: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index interaction: %s", res.Status())
	}

	return nil
}

// Ping tests the Elasticsearch connection
func (l *InteractionLog) Ping(ctx context.Context) error {
	res, err := l.client.Ping(
		l.client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}
