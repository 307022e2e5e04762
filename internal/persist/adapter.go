package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kapital-dev/kapital/internal/kv"
	"github.com/kapital-dev/kapital/internal/model"
)

// DefaultKey is the kv key holding the serialized ledger.
const DefaultKey = "accounts"

// Stored is a ledger as found in storage. Generation counts the successful
// saves made through the Adapter before it was read.
type Stored struct {
	Accounts   []model.Account
	Generation uint64
}

// Adapter stores the whole ledger as one blob under a single key.
type Adapter struct {
	store kv.Store
	key   string
	log   zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	watchers map[int]chan Stored
	nextID   int
}

// NewAdapter returns an Adapter reading and writing key in store.
func NewAdapter(store kv.Store, key string, log zerolog.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	return &Adapter{
		store:    store,
		key:      key,
		log:      log,
		watchers: make(map[int]chan Stored),
	}
}

// Load reads the stored ledger. A missing key is an empty ledger.
func (a *Adapter) Load(ctx context.Context) ([]model.Account, error) {
	data, err := a.store.Get(ctx, a.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []model.Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	return Decode(data)
}

// Save replaces the stored ledger with accounts and notifies watchers.
func (a *Adapter) Save(ctx context.Context, accounts []model.Account) error {
	data, err := Encode(accounts)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Put(ctx, a.key, data); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	a.gen++
	a.log.Debug().Str("key", a.key).Uint64("generation", a.gen).Int("bytes", len(data)).Msg("ledger saved")

	for _, ch := range a.watchers {
		offer(ch, Stored{Accounts: model.CloneAccounts(accounts), Generation: a.gen})
	}
	return nil
}

// Generation returns the number of successful saves so far.
func (a *Adapter) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

// WatchStored emits the current stored ledger, then the ledger after every
// Save. A slow reader only sees the latest value. The channel is closed
// when ctx is done.
func (a *Adapter) WatchStored(ctx context.Context) <-chan Stored {
	ch := make(chan Stored, 1)

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.watchers[id] = ch
	if current, err := a.Load(ctx); err != nil {
		a.log.Warn().Err(err).Msg("reading ledger for watcher")
	} else {
		offer(ch, Stored{Accounts: current, Generation: a.gen})
	}
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		delete(a.watchers, id)
		close(ch)
		a.mu.Unlock()
	}()
	return ch
}

// Watch is WatchStored without generations.
func (a *Adapter) Watch(ctx context.Context) <-chan []model.Account {
	in := a.WatchStored(ctx)
	out := make(chan []model.Account, 1)
	go func() {
		defer close(out)
		for st := range in {
			offer(out, st.Accounts)
		}
	}()
	return out
}

// offer replaces any unread value in ch with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
