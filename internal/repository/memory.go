package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

type row[T any] struct {
	doc T
	seq int64
}

type memoryDB struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	seq      int64
	products map[primitive.ObjectID]row[models.Product]
	orders   map[primitive.ObjectID]row[models.Order]
	users    map[primitive.ObjectID]row[models.User]
}

// NewMemoryStore returns a Store backed by process memory. Transactions are
// serialized and rolled back by restoring a snapshot taken before fn runs.
func NewMemoryStore() *Store {
	db := &memoryDB{
		products: make(map[primitive.ObjectID]row[models.Product]),
		orders:   make(map[primitive.ObjectID]row[models.Order]),
		users:    make(map[primitive.ObjectID]row[models.User]),
	}
	return &Store{
		Products: &memoryProducts{db: db},
		Orders:   &memoryOrders{db: db},
		Users:    &memoryUsers{db: db},
		Tx:       db,
		Ping:     func(context.Context) error { return nil },
	}
}

func (db *memoryDB) nextSeq() int64 {
	db.seq++
	return db.seq
}

func (db *memoryDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	products := copyMap(db.products)
	orders := copyMap(db.orders)
	users := copyMap(db.users)
	db.mu.RUnlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.products, db.orders, db.users = products, orders, users
		db.mu.Unlock()
		return err
	}
	return nil
}

// Stored documents are never mutated in place, so a shallow map copy is a
// consistent snapshot.
func copyMap[T any](in map[primitive.ObjectID]row[T]) map[primitive.ObjectID]row[T] {
	out := make(map[primitive.ObjectID]row[T], len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortRows[T any](rows []row[T], less func(a, b T) int) []T {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := less(rows[i].doc, rows[j].doc); c != 0 {
			return c < 0
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.doc)
	}
	return out
}

func cloneProduct(p models.Product) models.Product {
	p.Variants = append([]models.Variant{}, p.Variants...)
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderLine{}, o.Items...)
	return o
}

func cloneUser(u models.User) models.User {
	u.Addresses = append([]models.Address{}, u.Addresses...)
	u.Wishlist = append([]primitive.ObjectID{}, u.Wishlist...)
	return u
}

func compareTime[T any](get func(T) int64, desc bool) func(a, b T) int {
	return func(a, b T) int {
		x, y := get(a), get(b)
		if desc {
			x, y = y, x
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
}

/* =========================
   PRODUCTS
========================= */

type memoryProducts struct {
	db *memoryDB
}

func (r *memoryProducts) List(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	rows := make([]row[models.Product], 0, len(r.db.products))
	for _, rw := range r.db.products {
		p := rw.doc
		if category != "" && !strings.EqualFold(category, "all") && !strings.EqualFold(p.Category, category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		rows = append(rows, row[models.Product]{doc: cloneProduct(p), seq: rw.seq})
	}

	var less func(a, b models.Product) int
	switch filter.Sort {
	case SortPriceAsc, SortPriceDesc:
		desc := filter.Sort == SortPriceDesc
		less = func(a, b models.Product) int {
			x, y := a.DisplayPrice(), b.DisplayPrice()
			if desc {
				x, y = y, x
			}
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case SortNameAsc:
		less = func(a, b models.Product) int { return strings.Compare(a.Name, b.Name) }
	case SortNameDesc:
		less = func(a, b models.Product) int { return strings.Compare(b.Name, a.Name) }
	default:
		// newest first; later inserts win ties
		for i := range rows {
			rows[i].seq = -rows[i].seq
		}
		less = compareTime(func(p models.Product) int64 { return p.CreatedAt.UnixNano() }, true)
	}
	return sortRows(rows, less), nil
}

func (r *memoryProducts) GetByID(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rw, ok := r.db.products[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return cloneProduct(rw.doc), nil
}

func (r *memoryProducts) GetMany(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.Product, len(ids))
	for _, id := range ids {
		if rw, ok := r.db.products[id]; ok {
			out[id] = cloneProduct(rw.doc)
		}
	}
	return out, nil
}

func (r *memoryProducts) Create(_ context.Context, product *models.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	product.ID = primitive.NewObjectID()
	product.CreatedAt = now()
	product.UpdatedAt = product.CreatedAt
	product.Price = product.DisplayPrice()
	r.db.products[product.ID] = row[models.Product]{doc: cloneProduct(*product), seq: r.db.nextSeq()}
	return nil
}

func (r *memoryProducts) Update(_ context.Context, product *models.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rw, ok := r.db.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	product.CreatedAt = rw.doc.CreatedAt
	product.UpdatedAt = now()
	product.Price = product.DisplayPrice()
	r.db.products[product.ID] = row[models.Product]{doc: cloneProduct(*product), seq: rw.seq}
	return nil
}

func (r *memoryProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.products, id)
	return nil
}

func (r *memoryProducts) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.products)), nil
}

func (r *memoryProducts) DecrementStock(_ context.Context, id primitive.ObjectID, size, color string, qty int) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rw, ok := r.db.products[id]
	if !ok {
		return false, nil
	}
	product := cloneProduct(rw.doc)
	_, idx, found := product.FindVariant(size, color)
	if !found {
		return false, nil
	}

	product.Variants[idx].Stock -= qty
	if product.Variants[idx].Stock < 0 {
		product.Variants[idx].Stock = 0
	}
	product.UpdatedAt = now()
	r.db.products[id] = row[models.Product]{doc: product, seq: rw.seq}
	return true, nil
}

/* =========================
   ORDERS
========================= */

type memoryOrders struct {
	db *memoryDB
}

func (r *memoryOrders) Create(_ context.Context, order *models.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if order.PaymentSessionID != "" {
		for _, rw := range r.db.orders {
			if rw.doc.PaymentSessionID == order.PaymentSessionID {
				return ErrDuplicate
			}
		}
	}

	order.ID = primitive.NewObjectID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	order.UpdatedAt = order.CreatedAt
	r.db.orders[order.ID] = row[models.Order]{doc: cloneOrder(*order), seq: r.db.nextSeq()}
	return nil
}

func (r *memoryOrders) GetByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rw, ok := r.db.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return cloneOrder(rw.doc), nil
}

func (r *memoryOrders) FindByPaymentSession(_ context.Context, sessionID string) (models.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, rw := range r.db.orders {
		if sessionID != "" && rw.doc.PaymentSessionID == sessionID {
			return cloneOrder(rw.doc), nil
		}
	}
	return models.Order{}, ErrNotFound
}

func (r *memoryOrders) newestFirst(keep func(models.Order) bool) []models.Order {
	rows := make([]row[models.Order], 0)
	for _, rw := range r.db.orders {
		if keep(rw.doc) {
			rows = append(rows, row[models.Order]{doc: cloneOrder(rw.doc), seq: -rw.seq})
		}
	}
	return sortRows(rows, compareTime(func(o models.Order) int64 { return o.CreatedAt.UnixNano() }, true))
}

func (r *memoryOrders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.newestFirst(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r *memoryOrders) List(_ context.Context, query OrderQuery) ([]models.Order, int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := make(map[primitive.ObjectID]struct{}, len(query.UserIDs))
	for _, id := range query.UserIDs {
		users[id] = struct{}{}
	}

	orders := r.newestFirst(func(o models.Order) bool {
		if !query.Filtered {
			return true
		}
		if _, ok := users[o.UserID]; ok {
			return true
		}
		return query.OrderID != nil && *query.OrderID == o.ID
	})

	total := int64(len(orders))
	start := (query.Page - 1) * query.Limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return orders[start:end], total, nil
}

func (r *memoryOrders) All(_ context.Context) ([]models.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := make([]row[models.Order], 0, len(r.db.orders))
	for _, rw := range r.db.orders {
		rows = append(rows, row[models.Order]{doc: cloneOrder(rw.doc), seq: rw.seq})
	}
	return sortRows(rows, compareTime(func(o models.Order) int64 { return o.CreatedAt.UnixNano() }, false)), nil
}

func (r *memoryOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) (models.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rw, ok := r.db.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	order := cloneOrder(rw.doc)
	order.Status = status
	order.UpdatedAt = now()
	r.db.orders[id] = row[models.Order]{doc: order, seq: rw.seq}
	return cloneOrder(order), nil
}

func (r *memoryOrders) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.orders)), nil
}

/* =========================
   USERS
========================= */

type memoryUsers struct {
	db *memoryDB
}

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, rw := range r.db.users {
		if rw.doc.Email == user.Email {
			return ErrDuplicate
		}
	}

	user.ID = primitive.NewObjectID()
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	if user.Addresses == nil {
		user.Addresses = []models.Address{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []primitive.ObjectID{}
	}
	r.db.users[user.ID] = row[models.User]{doc: cloneUser(*user), seq: r.db.nextSeq()}
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rw, ok := r.db.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(rw.doc), nil
}

func (r *memoryUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, rw := range r.db.users {
		if rw.doc.Email == email {
			return cloneUser(rw.doc), nil
		}
	}
	return models.User{}, ErrNotFound
}

func (r *memoryUsers) GetMany(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if rw, ok := r.db.users[id]; ok {
			out[id] = cloneUser(rw.doc)
		}
	}
	return out, nil
}

func (r *memoryUsers) Update(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rw, ok := r.db.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range r.db.users {
		if id != user.ID && other.doc.Email == user.Email {
			return ErrDuplicate
		}
	}
	user.CreatedAt = rw.doc.CreatedAt
	user.UpdatedAt = now()
	r.db.users[user.ID] = row[models.User]{doc: cloneUser(*user), seq: rw.seq}
	return nil
}

func (r *memoryUsers) List(_ context.Context) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := make([]row[models.User], 0, len(r.db.users))
	for _, rw := range r.db.users {
		rows = append(rows, row[models.User]{doc: cloneUser(rw.doc), seq: -rw.seq})
	}
	return sortRows(rows, compareTime(func(u models.User) int64 { return u.CreatedAt.UnixNano() }, true)), nil
}

func (r *memoryUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

func (r *memoryUsers) Count(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(r.db.users)), nil
}

func (r *memoryUsers) SearchIDs(_ context.Context, term string) ([]primitive.ObjectID, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	term = strings.ToLower(strings.TrimSpace(term))
	ids := make([]primitive.ObjectID, 0)
	for id, rw := range r.db.users {
		if strings.Contains(strings.ToLower(rw.doc.Name), term) || strings.Contains(rw.doc.Email, term) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
