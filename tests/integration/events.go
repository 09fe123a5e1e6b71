package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/acme/acme-auth/internal/domain/event"
)

// eventName is the metadata name the cqrs JSON marshaler gives an event, e.g. "verification.CodeRequested".
func eventName[T event.Event]() string {
	var zero T
	return strings.TrimLeft(fmt.Sprintf("%T", zero), "*")
}

// outboxTable allocates a T because events implement event.Event through pointer receivers.
func outboxTable[T event.Event]() string {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ.Kind() == reflect.Pointer {
		zero = reflect.New(typ.Elem()).Interface().(T)
	}
	return `"watermill_` + zero.GetStreamName() + `"`
}

// LastEvent waits up to timeout for an event of type T in the outbox and
// returns the most recent one decoded from its payload.
func LastEvent[T event.Event](t testing.TB, pool *pgxpool.Pool, timeout time.Duration) T {
	t.Helper()

	name := eventName[T]()
	query := `SELECT payload FROM ` + outboxTable[T]() + ` WHERE metadata->>'name' = $1 ORDER BY "offset" DESC LIMIT 1`

	var evt T
	require.Eventually(t, func() bool {
		var payload []byte
		if err := pool.QueryRow(context.Background(), query, name).Scan(&payload); err != nil {
			return false
		}
		return json.Unmarshal(payload, &evt) == nil
	}, timeout, 20*time.Millisecond, "event %s not found in outbox", name)

	return evt
}

// CountEvents returns how many events of type T the outbox holds.
func CountEvents[T event.Event](t testing.TB, pool *pgxpool.Pool) int {
	t.Helper()

	var count int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM `+outboxTable[T]()+` WHERE metadata->>'name' = $1`,
		eventName[T](),
	).Scan(&count)
	require.NoError(t, err)

	return count
}

func AssertNoEvent[T event.Event](t testing.TB, pool *pgxpool.Pool) {
	t.Helper()
	assert.Zero(t, CountEvents[T](t, pool), "expected no %s events", eventName[T]())
}
