package WENOHybrid

import (
	"fmt"
	"time"

	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/utils"
)

const DefaultExchangeTimeout = 30 * time.Second

// FaceMessage is the state one side of a coupled face hands to the other side
type FaceMessage[T any] struct {
	Key       types.FaceKey
	Sender    int // Global id of the sending cell
	CellValue T
	Value     T // Limited one sided face value
	Sensor    float64
	Epoch     uint64
}

// Exchanger moves face messages between partitions. Post queues a message and never blocks, Collect is the gate:
// it sends everything queued and blocks until the expected number of messages of epoch has arrived.
type Exchanger[T any] interface {
	Post(toRank int, msg FaceMessage[T])
	Collect(epoch uint64, expected int) ([]FaceMessage[T], error)
}

// MailBoxExchanger is an in process Exchanger for partitions running on goroutines
type MailBoxExchanger[T any] struct {
	Rank    int
	Timeout time.Duration
	mb      *utils.MailBox[FaceMessage[T]]
}

// NewMailBoxExchangers returns one connected exchanger per rank
func NewMailBoxExchangers[T any](nRanks int, timeout time.Duration) (exs []*MailBoxExchanger[T]) {
	mb := utils.NewMailBox[FaceMessage[T]](nRanks)
	exs = make([]*MailBoxExchanger[T], nRanks)
	for r := range exs {
		exs[r] = &MailBoxExchanger[T]{Rank: r, Timeout: timeout, mb: mb}
	}
	return
}

func (ex *MailBoxExchanger[T]) Post(toRank int, msg FaceMessage[T]) {
	ex.mb.PostMessage(ex.Rank, toRank, msg)
}

func (ex *MailBoxExchanger[T]) Collect(epoch uint64, expected int) (msgs []FaceMessage[T], err error) {
	var (
		inbox = ex.mb.ReceiveMsgQs[ex.Rank]
	)
	ex.mb.DeliverMyMessages(ex.Rank)
	ex.mb.ReceiveMyMessages(ex.Rank)
	count := func() (n int) {
		for _, msg := range inbox.Cells() {
			if msg.Epoch == epoch {
				n++
			}
		}
		return
	}
	for count() < expected {
		if !ex.mb.WaitForMessages(ex.Rank, ex.Timeout) {
			err = fmt.Errorf("rank %d has %d of %d messages of epoch %d after %v: %w",
				ex.Rank, count(), expected, epoch, ex.Timeout, ErrExchangeTimeout)
			return
		}
	}
	msgs = make([]FaceMessage[T], 0, expected)
	for _, msg := range inbox.Cells() {
		if msg.Epoch == epoch {
			msgs = append(msgs, msg)
		}
	}
	// Messages of later epochs come from partitions that are already one evaluation ahead
	inbox.Retain(func(msg FaceMessage[T]) bool { return msg.Epoch > epoch })
	return
}
