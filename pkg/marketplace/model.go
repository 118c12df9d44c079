package marketplace

import (
	"time"

	"github.com/oko-market/oko-client/pkg/session"
)

type Product struct {
	ID          string    `json:"id"`
	FarmerID    string    `json:"farmerId"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Unit        string    `json:"unit"`
	Quantity    float64   `json:"quantity"`
	Location    string    `json:"location,omitempty"`
	Images      []string  `json:"images,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p Product) Identity() string { return p.ID }

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// Request is a processor's request to buy a farmer's product.
type Request struct {
	ID          string        `json:"id"`
	ProductID   string        `json:"productId"`
	ProcessorID string        `json:"processorId"`
	FarmerID    string        `json:"farmerId"`
	Quantity    float64       `json:"quantity"`
	OfferPrice  float64       `json:"offerPrice"`
	Status      RequestStatus `json:"status"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (r Request) Identity() string { return r.ID }

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n Notification) Identity() string { return n.ID }

type DisputeStatus string

const (
	DisputeOpen      DisputeStatus = "open"
	DisputeEscalated DisputeStatus = "escalated"
	DisputeResolved  DisputeStatus = "resolved"
)

type Dispute struct {
	ID         string        `json:"id"`
	RequestID  string        `json:"requestId"`
	RaisedBy   string        `json:"raisedBy"`
	Reason     string        `json:"reason"`
	Status     DisputeStatus `json:"status"`
	Resolution string        `json:"resolution,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func (d Dispute) Identity() string { return d.ID }

type InventoryItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId,omitempty"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i InventoryItem) Identity() string { return i.ID }

// Account is a user as seen by the moderation screens.
type Account struct {
	session.User

	Suspended bool `json:"suspended"`
}

func (a Account) Identity() string { return a.ID }
