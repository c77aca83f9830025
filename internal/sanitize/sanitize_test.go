package sanitize

import (
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports/portstest"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		key  domain.Value
		want string
	}{
		{"plain", domain.String("message"), "message"},
		{"leading dollar", domain.String("$set"), "_set"},
		{"every leading dollar", domain.String("$$ref"), "__ref"},
		{"inner dollar kept", domain.String("a$b"), "a$b"},
		{"dots", domain.String("a.b.c"), "a_b_c"},
		{"dollar and dot", domain.String("$bad.key"), "_bad_key"},
		{"nul", domain.String("a\x00b"), "a_b"},
		{"leading nul ends prefix", domain.String("\x00$x"), "_$x"},
		{"int key", domain.Int(42), "42"},
		{"float key", domain.Float(1.5), "1_5"},
		{"bool key", domain.Bool(true), "true"},
		{"null key", domain.Null(), ""},
		{"invalid utf8 key", domain.String("k\xff"), "k�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.key))
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "plain ascii", Text("plain ascii"))
	assert.Equal(t, "héllo", Text("héllo"))

	got := Text("\xFF\xFE invalid")
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "�� invalid", got)
}

func TestRecord_PreservesOrderAndShape(t *testing.T) {
	in := domain.NewRecord(
		domain.F("$bad.key", domain.String("\xFF\xFE invalid")),
		domain.F("nested", domain.Map(domain.NewRecord(
			domain.F("a.b", domain.Array(domain.String("ok"), domain.String("x\xC3"))),
		))),
		domain.F("raw", domain.Bytes([]byte{0xff, 0x00})),
		domain.Field{Key: domain.Int(7), Value: domain.Int(1)},
	)

	out := Record(in)

	want := domain.NewRecord(
		domain.F("_bad_key", domain.String("�� invalid")),
		domain.F("nested", domain.Map(domain.NewRecord(
			domain.F("a_b", domain.Array(domain.String("ok"), domain.String("x�"))),
		))),
		domain.F("raw", domain.Bytes([]byte{0xff, 0x00})),
		domain.F("7", domain.Int(1)),
	)
	assert.True(t, out.Equal(want), "got %+v", out.Fields())

	// input untouched
	first := in.Fields()[0]
	assert.Equal(t, "$bad.key", first.Key.AsString())
}

func TestRecords_StorableAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		r := randomRecord(rng, 3)

		once := Record(r)
		require.NoError(t, portstest.Validate(once), "sanitized record still invalid: %+v", once.Fields())

		twice := Record(once)
		require.True(t, twice.Equal(once), "sanitize is not idempotent for %+v", r.Fields())
	}
}

func TestRecords_DoesNotAliasInput(t *testing.T) {
	in := []domain.Record{domain.NewRecord(domain.F("a.b", domain.Int(1)))}
	out := Records(in)

	require.Len(t, out, 1)
	assert.Equal(t, "a_b", out[0].Fields()[0].Key.AsString())
	assert.Equal(t, "a.b", in[0].Fields()[0].Key.AsString())
}

var keyAlphabet = []string{"$", ".", "a", "b", "\xff", "\xc3", "é", "_", "$.", "\x00"}

func randomText(rng *rand.Rand) string {
	var sb strings.Builder
	n := rng.Intn(6)
	for i := 0; i < n; i++ {
		sb.WriteString(keyAlphabet[rng.Intn(len(keyAlphabet))])
	}
	return sb.String()
}

func randomValue(rng *rand.Rand, depth int) domain.Value {
	max := 8
	if depth <= 0 {
		max = 6
	}
	switch rng.Intn(max) {
	case 0:
		return domain.Null()
	case 1:
		return domain.Bool(rng.Intn(2) == 0)
	case 2:
		return domain.Int(rng.Int63n(1000) - 500)
	case 3:
		return domain.Float(rng.Float64())
	case 4:
		return domain.String(randomText(rng))
	case 5:
		return domain.Time(time.Unix(rng.Int63n(1<<31), 0))
	case 6:
		return domain.Map(randomRecord(rng, depth-1))
	default:
		n := rng.Intn(4)
		vs := make([]domain.Value, n)
		for i := range vs {
			vs[i] = randomValue(rng, depth-1)
		}
		return domain.Array(vs...)
	}
}

func randomRecord(rng *rand.Rand, depth int) domain.Record {
	n := rng.Intn(5)
	fields := make([]domain.Field, n)
	for i := range fields {
		var key domain.Value
		if rng.Intn(5) == 0 {
			key = randomValue(rng, 0)
		} else {
			key = domain.String(randomText(rng))
		}
		fields[i] = domain.Field{Key: key, Value: randomValue(rng, depth)}
	}
	return domain.NewRecord(fields...)
}
