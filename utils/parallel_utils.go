package utils

import (
	"fmt"
	"time"
)

// MailBox moves buffers of messages between NP threads. The pattern is:
//
//	for range messages {Post}; Deliver; Wait/Receive; Retain or Reset the inbox
//
// A delivered buffer belongs to the receiver, the sender starts a fresh one.
type MailBox[T any] struct {
	NP           int
	MessageChans []chan *DynBuffer[T]    // One for each thread
	PostMsgQs    []map[int]*DynBuffer[T] // One for each thread,
	// key is target thread
	ReceiveMsgQs []*DynBuffer[T] // One for each thread
	MailFlag     []bool          // MyThread receiver has messages in outbox
}

func NewMailBox[T any](NP int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           NP,
		MessageChans: make([]chan *DynBuffer[T], NP),
		PostMsgQs:    make([]map[int]*DynBuffer[T], NP),
		ReceiveMsgQs: make([]*DynBuffer[T], NP),
		MailFlag:     make([]bool, NP),
	}
	for n := 0; n < NP; n++ {
		// Worst case is all-to-all with a sender one delivery ahead of the receiver
		mb.MessageChans[n] = make(chan *DynBuffer[T], 2*NP)
		mb.PostMsgQs[n] = make(map[int]*DynBuffer[T])
		mb.ReceiveMsgQs[n] = NewDynBuffer[T](0)
	}
	return mb
}

func (mb *MailBox[T]) PostMessage(myThread, targetThread int, msg T) {
	var (
		exists bool
		tgt    *DynBuffer[T]
	)
	if tgt, exists = mb.PostMsgQs[myThread][targetThread]; !exists {
		tgt = NewDynBuffer[T](0)
		mb.PostMsgQs[myThread][targetThread] = tgt
	}
	tgt.Add(msg)
	if !mb.MailFlag[myThread] {
		mb.MailFlag[myThread] = true
	}
}

func (mb *MailBox[T]) DeliverMyMessages(myThread int) {
	if mb.MailFlag[myThread] {
		for targetThread, msgBuffer := range mb.PostMsgQs[myThread] {
			if targetThread < 0 || targetThread > mb.NP-1 {
				panic(fmt.Sprintf("Target thread %d out of bounds", targetThread))
			}
			if msgBuffer.Len() == 0 {
				continue
			}
			mb.MessageChans[targetThread] <- msgBuffer
			mb.PostMsgQs[myThread][targetThread] = NewDynBuffer[T](msgBuffer.Len())
		}
		mb.MailFlag[myThread] = false
	}
}

// ReceiveMyMessages drains everything already delivered to myThread without blocking
func (mb *MailBox[T]) ReceiveMyMessages(myThread int) {
	for {
		select {
		case msgBuffer := <-mb.MessageChans[myThread]:
			mb.receive(myThread, msgBuffer)
		default:
			return
		}
	}
}

// WaitForMessages blocks until one more buffer arrives for myThread, then drains the rest. It returns false if
// nothing arrived within timeout.
func (mb *MailBox[T]) WaitForMessages(myThread int, timeout time.Duration) (arrived bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msgBuffer := <-mb.MessageChans[myThread]:
		mb.receive(myThread, msgBuffer)
		arrived = true
	case <-timer.C:
		return
	}
	mb.ReceiveMyMessages(myThread)
	return
}

func (mb *MailBox[T]) receive(myThread int, msgBuffer *DynBuffer[T]) {
	for _, msg := range msgBuffer.Cells() {
		mb.ReceiveMsgQs[myThread].Add(msg)
	}
}

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucket(kDim int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(kDim)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(kDim int) (tryCount, bucketNum, min, max int) {
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*kDim) / float64(pm.MaxIndex))
	if bucketNum >= pm.ParallelDegree {
		bucketNum = pm.ParallelDegree - 1
	}
	for !(pm.Partitions[bucketNum][0] <= kDim && pm.Partitions[bucketNum][1] > kDim) {
		if pm.Partitions[bucketNum][0] > kDim {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetLocalK(baseK int) (k, Kmax, bn int) {
	var (
		kmin, kmax int
	)
	bn, kmin, kmax = pm.GetBucket(baseK)
	Kmax = kmax - kmin
	k = baseK - kmin
	return
}

func (pm *PartitionMap) GetGlobalK(kLocal, bn int) (kGlobal int) {
	if bn == -1 {
		kGlobal = kLocal
		return
	}
	var (
		kMin = pm.Partitions[bn][0]
	)
	kGlobal = kMin + kLocal
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

type HaloMsg[T any] struct {
	// From the perspective of the receiver
	KGlobal int
	Value   T
	Round   int // Exchange count of the sender, a neighbour may already be one round ahead
}

// HaloLink is one owned cell value that a neighbouring thread keeps a halo copy of
type HaloLink struct {
	TargetThread    int
	KLocal, KGlobal int
}

// HaloExchanger keeps the halo copies of neighbouring cells current, each thread posting the owned values the
// others read as halo and then waiting for its own halo values.
type HaloExchanger[T any] struct {
	Links       [][]HaloLink  // One list per thread
	HaloToLocal []map[int]int // One per thread, global cell id -> local halo index
	Timeout     time.Duration
	mb          *MailBox[*HaloMsg[T]]
	rounds      []int
}

func NewHaloExchanger[T any](Links [][]HaloLink, HaloToLocal []map[int]int,
	Timeout time.Duration) (he *HaloExchanger[T]) {
	if len(Links) != len(HaloToLocal) {
		panic(fmt.Errorf("halo links for %d threads, halo maps for %d threads",
			len(Links), len(HaloToLocal)))
	}
	he = &HaloExchanger[T]{
		Links:       Links,
		HaloToLocal: HaloToLocal,
		Timeout:     Timeout,
		mb:          NewMailBox[*HaloMsg[T]](len(Links)),
		rounds:      make([]int, len(Links)),
	}
	return
}

func (he *HaloExchanger[T]) PostHalo(myThread int, values []T) {
	he.rounds[myThread]++
	for _, link := range he.Links[myThread] {
		he.mb.PostMessage(myThread, link.TargetThread, &HaloMsg[T]{
			KGlobal: link.KGlobal,
			Value:   values[link.KLocal],
			Round:   he.rounds[myThread],
		})
	}
	he.mb.DeliverMyMessages(myThread)
}

// ReadHalo places the halo values of myThread for its current round into values, waiting until every halo cell
// has been received. Values of later rounds stay queued.
func (he *HaloExchanger[T]) ReadHalo(myThread int, values []T) (err error) {
	var (
		expected = len(he.HaloToLocal[myThread])
		round    = he.rounds[myThread]
		inbox    = he.mb.ReceiveMsgQs[myThread]
	)
	current := func() (n int) {
		for _, msg := range inbox.Cells() {
			if msg.Round == round {
				n++
			}
		}
		return
	}
	he.mb.ReceiveMyMessages(myThread)
	for n := current(); n < expected; n = current() {
		if !he.mb.WaitForMessages(myThread, he.Timeout) {
			err = fmt.Errorf("thread %d received %d of %d halo values before timeout",
				myThread, n, expected)
			return
		}
	}
	for _, msg := range inbox.Cells() {
		if msg.Round != round {
			continue
		}
		k, ok := he.HaloToLocal[myThread][msg.KGlobal]
		if !ok {
			err = fmt.Errorf("thread %d received halo value for cell %d it does not hold",
				myThread, msg.KGlobal)
			return
		}
		values[k] = msg.Value
	}
	inbox.Retain(func(msg *HaloMsg[T]) bool { return msg.Round > round })
	return
}
