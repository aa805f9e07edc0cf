package peac

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var uuidv7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestUUIDv7Generator_NewReceiptID(t *testing.T) {
	gen := NewUUIDv7Generator()

	id, err := gen.NewReceiptID()
	require.NoError(t, err)
	require.Regexp(t, uuidv7Regex, id)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := NewUUIDv7Generator()

	ids := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := gen.NewReceiptID()
		require.NoError(t, err)
		require.False(t, ids[id], "duplicate ID generated: %s", id)
		ids[id] = true
	}
}

func TestUUIDv7Generator_TimestampOrdering(t *testing.T) {
	gen := NewUUIDv7Generator()

	var ids []string
	for i := 0; i < 100; i++ {
		id, err := gen.NewReceiptID()
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i := 1; i < len(ids); i++ {
		require.GreaterOrEqual(t, ids[i], ids[i-1], "ids not in lexicographic order")
	}
}

func TestFixedIDGenerator_NewReceiptID(t *testing.T) {
	gen := NewFixedIDGenerator("id-001", "id-002", "id-003")

	id, err := gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "id-001", id)

	id, err = gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "id-002", id)

	id, err = gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "id-003", id)

	// Should cycle back
	id, err = gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "id-001", id)
}

func TestFixedIDGenerator_Default(t *testing.T) {
	gen := NewFixedIDGenerator() // No IDs provided

	id, err := gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "01890a5d-ac96-774b-bcce-b302099a8057", id)
}

func TestFixedIDGenerator_Concurrent(t *testing.T) {
	gen := NewFixedIDGenerator("a", "b", "c", "d", "e")

	done := make(chan string, 100)
	for i := 0; i < 100; i++ {
		go func() {
			id, err := gen.NewReceiptID()
			require.NoError(t, err)
			done <- id
		}()
	}

	counts := make(map[string]int)
	for i := 0; i < 100; i++ {
		counts[<-done]++
	}

	total := 0
	for id, count := range counts {
		require.Contains(t, []string{"a", "b", "c", "d", "e"}, id)
		total += count
	}
	require.Equal(t, 100, total)
}

func TestSequentialIDGenerator_NewReceiptID(t *testing.T) {
	gen := NewSequentialIDGenerator("receipt-")

	id, err := gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "receipt-001", id)

	id, err = gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "receipt-002", id)

	id, err = gen.NewReceiptID()
	require.NoError(t, err)
	require.Equal(t, "receipt-003", id)
}

func TestSequentialIDGenerator_Concurrent(t *testing.T) {
	gen := NewSequentialIDGenerator("seq-")

	done := make(chan string, 100)
	for i := 0; i < 100; i++ {
		go func() {
			id, err := gen.NewReceiptID()
			require.NoError(t, err)
			done <- id
		}()
	}

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := <-done
		require.False(t, ids[id], "duplicate ID: %s", id)
		ids[id] = true
	}

	require.Len(t, ids, 100)
}

func TestDefaultIDGenerator(t *testing.T) {
	gen := DefaultIDGenerator()
	_, ok := gen.(*UUIDv7Generator)
	require.True(t, ok, "DefaultIDGenerator() type = %T, want *UUIDv7Generator", gen)

	id, err := gen.NewReceiptID()
	require.NoError(t, err)
	require.Regexp(t, uuidv7Regex, id)
}

func TestIDGenerator_Interface(t *testing.T) {
	var _ ReceiptIDGenerator = &UUIDv7Generator{}
	var _ ReceiptIDGenerator = &FixedIDGenerator{}
	var _ ReceiptIDGenerator = &SequentialIDGenerator{}
}
