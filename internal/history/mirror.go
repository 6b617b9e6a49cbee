package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/txrisk/internal/risk"
)

const (
	mirrorMaxPage = 100
	// tinybarExp converts tinybar integers to whole-unit decimals.
	tinybarExp = -8
)

// MirrorProvider reads histories from a mirror node REST API
// (GET /api/v1/transactions?account.id=...&order=desc), following
// links.next until the limit is met.
type MirrorProvider struct {
	baseURL  *url.URL
	client   *http.Client
	pageSize int
}

// MirrorOption configures a MirrorProvider.
type MirrorOption func(*MirrorProvider)

// WithHTTPClient replaces the default client (5s timeout).
func WithHTTPClient(c *http.Client) MirrorOption {
	return func(p *MirrorProvider) { p.client = c }
}

// WithPageSize sets records requested per page, capped at 100.
func WithPageSize(n int) MirrorOption {
	return func(p *MirrorProvider) {
		if n > 0 && n <= mirrorMaxPage {
			p.pageSize = n
		}
	}
}

// NewMirrorProvider creates a provider for the mirror node at baseURL
// (e.g. https://testnet.mirrornode.hedera.com).
func NewMirrorProvider(baseURL string, opts ...MirrorOption) (*MirrorProvider, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("history: invalid mirror node URL %q", baseURL)
	}
	p := &MirrorProvider{
		baseURL:  u,
		client:   &http.Client{Timeout: 5 * time.Second},
		pageSize: mirrorMaxPage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type mirrorTransfer struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type mirrorTransaction struct {
	TransactionID      string           `json:"transaction_id"`
	ConsensusTimestamp string           `json:"consensus_timestamp"`
	ChargedTxFee       int64            `json:"charged_tx_fee"`
	Result             string           `json:"result"`
	Transfers          []mirrorTransfer `json:"transfers"`
}

type mirrorPage struct {
	Transactions []mirrorTransaction `json:"transactions"`
	Links        struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// GetHistory pages through the account's transactions newest first.
// Entries whose timestamp cannot be parsed are skipped.
func (p *MirrorProvider) GetHistory(ctx context.Context, accountID string, limit int) ([]risk.TransactionRecord, error) {
	if limit <= 0 {
		limit = risk.DefaultHistoryLimit
	}

	q := url.Values{}
	q.Set("account.id", accountID)
	q.Set("limit", strconv.Itoa(min(limit, p.pageSize)))
	q.Set("order", "desc")
	next := p.baseURL.JoinPath("/api/v1/transactions")
	next.RawQuery = q.Encode()

	records := make([]risk.TransactionRecord, 0, limit)
	for next != nil && len(records) < limit {
		page, err := p.fetchPage(ctx, next.String())
		if err != nil {
			return nil, err
		}
		if len(page.Transactions) == 0 {
			break
		}
		for _, tx := range page.Transactions {
			if r, ok := toRecord(accountID, tx); ok {
				records = append(records, r)
			}
		}

		next = nil
		if page.Links.Next != nil && *page.Links.Next != "" {
			ref, err := url.Parse(*page.Links.Next)
			if err != nil {
				return nil, fmt.Errorf("history: invalid next link %q: %w", *page.Links.Next, err)
			}
			next = p.baseURL.ResolveReference(ref)
		}
	}

	newestFirst(records)
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (p *MirrorProvider) fetchPage(ctx context.Context, u string) (*mirrorPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("mirror node returned status %d: %w", resp.StatusCode, ErrAccountNotFound)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("mirror node returned status %d", resp.StatusCode)
	}

	var page mirrorPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode mirror node response: %w", err)
	}
	return &page, nil
}

func toRecord(accountID string, tx mirrorTransaction) (risk.TransactionRecord, bool) {
	ts, err := parseConsensusTimestamp(tx.ConsensusTimestamp)
	if err != nil {
		return risk.TransactionRecord{}, false
	}
	return risk.TransactionRecord{
		TransactionID:      tx.TransactionID,
		ConsensusTimestamp: ts,
		FeeAmount:          decimal.New(tx.ChargedTxFee, tinybarExp),
		Result:             risk.TxResult(tx.Result),
		CounterpartyID:     counterparty(accountID, tx.Transfers),
	}, true
}

// counterparty is the first other account moving a non-zero amount.
func counterparty(accountID string, transfers []mirrorTransfer) string {
	for _, t := range transfers {
		if t.Account != accountID && t.Amount != 0 {
			return t.Account
		}
	}
	return ""
}

// parseConsensusTimestamp parses "seconds.nanoseconds" into a UTC time.
func parseConsensusTimestamp(s string) (time.Time, error) {
	secPart, nanoPart, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid consensus timestamp %q: %w", s, err)
	}
	var nanos int64
	if nanoPart != "" {
		if len(nanoPart) > 9 {
			return time.Time{}, fmt.Errorf("invalid consensus timestamp %q", s)
		}
		nanoPart += strings.Repeat("0", 9-len(nanoPart))
		nanos, err = strconv.ParseInt(nanoPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid consensus timestamp %q: %w", s, err)
		}
	}
	return time.Unix(sec, nanos).UTC(), nil
}
