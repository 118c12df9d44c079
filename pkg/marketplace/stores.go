package marketplace

import (
	"context"
	"net/http"

	"github.com/oko-market/oko-client/pkg/apiclient"
)

const (
	ResourceProducts      = "products"
	ResourceRequests      = "requests"
	ResourceNotifications = "notifications"
	ResourceDisputes      = "disputes"
	ResourceInventory     = "inventory"
	ResourceModeration    = "admin/users"
)

type Products = Store[Product]

func NewProducts(api API) *Products {
	return NewStore[Product](api, ResourceProducts)
}

type Inventory = Store[InventoryItem]

func NewInventory(api API) *Inventory {
	return NewStore[InventoryItem](api, ResourceInventory)
}

type Requests struct {
	*Store[Request]
}

func NewRequests(api API) *Requests {
	return &Requests{Store: NewStore[Request](api, ResourceRequests)}
}

func (r *Requests) Accept(ctx context.Context, id string) (Request, error) {
	return r.Act(ctx, id, "accept", nil)
}

func (r *Requests) Reject(ctx context.Context, id, reason string) (Request, error) {
	return r.Act(ctx, id, "reject", map[string]string{"reason": reason})
}

func (r *Requests) Complete(ctx context.Context, id string) (Request, error) {
	return r.Act(ctx, id, "complete", nil)
}

// Pending returns the requests still waiting for an answer.
func (r *Requests) Pending() []Request {
	var out []Request
	for _, req := range r.Items() {
		if req.Status == RequestPending {
			out = append(out, req)
		}
	}

	return out
}

type Notifications struct {
	*Store[Notification]
}

func NewNotifications(api API) *Notifications {
	return &Notifications{Store: NewStore[Notification](api, ResourceNotifications)}
}

func (n *Notifications) MarkRead(ctx context.Context, id string) (Notification, error) {
	return n.Act(ctx, id, "mark-read", nil)
}

// MarkAllRead marks every notification read and reloads the list.
func (n *Notifications) MarkAllRead(ctx context.Context) ([]Notification, error) {
	n.begin()
	_, err := n.api.Do(ctx, http.MethodPatch, n.resource, nil, apiclient.WithAction("mark-all-read"))
	n.finish(ctx, err, func(items []Notification) []Notification { return items })
	if err != nil {
		return nil, err
	}

	return n.Fetch(ctx)
}

func (n *Notifications) Unread() int {
	count := 0
	for _, item := range n.Items() {
		if !item.Read {
			count++
		}
	}

	return count
}

type Disputes struct {
	*Store[Dispute]
}

func NewDisputes(api API) *Disputes {
	return &Disputes{Store: NewStore[Dispute](api, ResourceDisputes)}
}

func (d *Disputes) Resolve(ctx context.Context, id, resolution string) (Dispute, error) {
	return d.Act(ctx, id, "resolve", map[string]string{"resolution": resolution})
}

func (d *Disputes) Escalate(ctx context.Context, id string) (Dispute, error) {
	return d.Act(ctx, id, "escalate", nil)
}

// Moderation is the administrator's view of user accounts.
type Moderation struct {
	*Store[Account]
}

func NewModeration(api API) *Moderation {
	return &Moderation{Store: NewStore[Account](api, ResourceModeration)}
}

func (m *Moderation) Approve(ctx context.Context, id string) (Account, error) {
	return m.Act(ctx, id, "approve", nil)
}

func (m *Moderation) Suspend(ctx context.Context, id, reason string) (Account, error) {
	return m.Act(ctx, id, "suspend", map[string]string{"reason": reason})
}
