package executor

import "errors"

// NegotiationState is a counter-offer negotiation's current phase (spec
// §4.8).
type NegotiationState string

const (
	NegIdle             NegotiationState = "idle"
	NegBidSent          NegotiationState = "bid_sent"
	NegCounterReceived  NegotiationState = "counter_received"
	NegCounterSent      NegotiationState = "counter_sent"
	NegAccepted         NegotiationState = "accepted"
	NegRejected         NegotiationState = "rejected"
	NegExpired          NegotiationState = "expired"
)

// maxNegotiationRounds bounds how many counter-offer exchanges a
// negotiation may go through before it expires.
const maxNegotiationRounds = 5

// ErrNegotiationExpired names the condition of a negotiation past
// maxNegotiationRounds. ReceiveCounter does not return it; it reports that
// condition as the NegExpired state.
var ErrNegotiationExpired = errors.New("executor: negotiation round limit exceeded")

// Negotiation tracks one bid's counter-offer exchange against our
// minimum acceptable price.
type Negotiation struct {
	State     NegotiationState
	OurPrice  float64
	MinPrice  float64
	Rounds    int
}

// NewNegotiation starts a negotiation at bid_sent with our initial price.
func NewNegotiation(ourPrice, minPrice float64) *Negotiation {
	return &Negotiation{State: NegBidSent, OurPrice: ourPrice, MinPrice: minPrice}
}

// ReceiveCounter processes a counter-offer from the poster: accept if it
// meets our minimum, else counter at the midpoint (if that midpoint still
// meets our minimum), else reject. Exceeding maxNegotiationRounds expires
// the negotiation instead.
func (n *Negotiation) ReceiveCounter(theirOffer float64) (NegotiationState, float64) {
	n.Rounds++
	if n.Rounds > maxNegotiationRounds {
		n.State = NegExpired
		return n.State, 0
	}

	n.State = NegCounterReceived

	if theirOffer >= n.MinPrice {
		n.State = NegAccepted
		n.OurPrice = theirOffer
		return n.State, n.OurPrice
	}

	midpoint := (theirOffer + n.OurPrice) / 2
	if midpoint >= n.MinPrice {
		n.State = NegCounterSent
		n.OurPrice = midpoint
		return n.State, n.OurPrice
	}

	n.State = NegRejected
	return n.State, 0
}
