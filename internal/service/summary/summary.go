// internal/service/summary/summary.go
package summary

import (
	"context"
	"math"
	"sort"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/segment"

	"go.uber.org/zap"
)

const (
	DefaultMessageLimit = 100
	peakHourCount       = 3
	topWordCount        = 10
	recentSampleSize    = 20
)

type Service struct {
	history      chat.History
	messageLimit int
	now          func() time.Time
	logger       *zap.Logger
}

func NewService(history chat.History, messageLimit int, logger *zap.Logger) *Service {
	if messageLimit <= 0 || messageLimit > DefaultMessageLimit {
		messageLimit = DefaultMessageLimit
	}
	return &Service{
		history:      history,
		messageLimit: messageLimit,
		now:          time.Now,
		logger:       logger,
	}
}

// Build assembles the digest of one customer. Unknown customers yield xerrors.ErrNotFound.
func (s *Service) Build(ctx context.Context, customerID int64) (*segment.Digest, error) {
	c, err := s.history.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	messages, err := s.history.RecentMessages(ctx, customerID, s.messageLimit)
	if err != nil {
		return nil, err
	}

	stats, err := s.history.SessionStats(ctx, customerID)
	if err != nil {
		return nil, err
	}

	d := &segment.Digest{
		CustomerID:            c.ID,
		Name:                  c.DisplayName(),
		PhoneNumber:           c.PhoneNumber,
		TotalMessages:         c.TotalMessages,
		FirstMessageAt:        c.FirstMessage,
		LastMessageAt:         c.LastMessage,
		DaysAsCustomer:        wholeDays(c.LastMessage.Sub(c.FirstMessage)),
		DaysSinceLastMessage:  wholeDays(s.now().Sub(c.LastMessage)),
		SessionCount:          stats.SessionCount,
		AvgMessagesPerSession: round2(stats.AvgMessagesPerSession),
		PeakHours:             peakHours(messages, peakHourCount),
		AvgResponseSeconds:    round2(averageResponse(messages).Seconds()),
		SampledMessages:       len(messages),
		CurrentSegment:        c.Segment,
	}

	activeDays := d.DaysAsCustomer
	if activeDays < 1 {
		activeDays = 1
	}
	d.MessagesPerDay = round2(float64(c.TotalMessages) / float64(activeDays))

	var customerTexts []string
	for _, m := range messages {
		if m.Body == nil {
			continue
		}
		if !m.FromMe {
			customerTexts = append(customerTexts, *m.Body)
		}
		if len(d.RecentMessages) < recentSampleSize {
			d.RecentMessages = append(d.RecentMessages, *m.Body)
		}
	}
	d.TopWords = topWords(customerTexts, topWordCount)

	s.logger.Debug("digest built",
		zap.Int64("customer_id", customerID),
		zap.Int("sampled_messages", len(messages)),
	)
	return d, nil
}

// peakHours counts messages per hour of day (UTC) over the fetched sequence.
func peakHours(messages []chat.Message, limit int) []segment.HourCount {
	counts := map[int]int{}
	var order []int
	for _, m := range messages {
		h := m.Timestamp.UTC().Hour()
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}

	out := make([]segment.HourCount, 0, len(order))
	for _, h := range order {
		out = append(out, segment.HourCount{Hour: h, Count: counts[h]})
	}
	sortStableDesc(out, func(hc segment.HourCount) int { return hc.Count })

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// averageResponse is the mean delay between a business message and the customer
// message right after it, walking newest-first input in chronological order.
func averageResponse(newestFirst []chat.Message) time.Duration {
	if len(newestFirst) < 2 {
		return 0
	}

	var total time.Duration
	var pairs int
	for i := len(newestFirst) - 1; i > 0; i-- {
		prev, cur := newestFirst[i], newestFirst[i-1]
		if prev.FromMe && !cur.FromMe {
			total += cur.Timestamp.Sub(prev.Timestamp)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / time.Duration(pairs)
}

func wholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortStableDesc[T any](items []T, key func(T) int) {
	sort.SliceStable(items, func(i, j int) bool { return key(items[i]) > key(items[j]) })
}
