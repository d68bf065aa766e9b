package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, products []Product) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "products.json")
	data, err := json.Marshal(products)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return NewStore(path), path
}

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Clay Bowl", Description: "Hand thrown stoneware bowl", Price: 12.50, ImagePath: "/assets/images/bowl.jpg"},
		{ID: 2, Name: "Ceramic Mug", Description: "Glazed mug with clay handle", Price: 9.00, ImagePath: "/assets/images/mug.jpg"},
		{ID: 3, Name: "Woven Basket", Description: "Willow basket", Price: 30.00, ImagePath: "/assets/images/basket.jpg"},
	}
}

func TestListReturnsStoredOrder(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	out, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 1, out[0].ID)
	require.Equal(t, 3, out[2].ID)
}

func TestListSearchIsCaseInsensitiveSubstring(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	out, err := store.List("CLAY", 0)
	require.NoError(t, err)
	// Matches name of product 1 and description of product 2.
	require.Len(t, out, 2)
	require.Equal(t, 1, out[0].ID)
	require.Equal(t, 2, out[1].ID)
}

func TestListLimitAppliesAfterFilter(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	out, err := store.List("clay", 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Clay Bowl", out[0].Name)
}

func TestGet(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	p, err := store.Get(2)
	require.NoError(t, err)
	require.Equal(t, "Ceramic Mug", p.Name)

	_, err = store.Get(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAssignsNextID(t *testing.T) {
	store, path := seedStore(t, sampleProducts())

	p, err := store.Create(ProductInput{
		Name:        "Linen Towel",
		Description: "Stonewashed linen",
		Price:       15.00,
		ImagePath:   "assets/images/towel.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, 4, p.ID)
	require.Equal(t, "/assets/images/towel.jpg", p.ImagePath)

	// Whole collection was rewritten.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []Product
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 4)

	// A timestamped backup of the previous contents exists.
	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	require.NotEmpty(t, backups)
}

func TestCreateOnEmptyCatalogStartsAtOne(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "products.json"))

	p, err := store.Create(ProductInput{
		Name:        "Clay Bowl",
		Description: "Hand thrown",
		Price:       12.50,
		ImagePath:   "/x.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, 1, p.ID)
}

func TestCreateCollectsAllValidationProblems(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	_, err := store.Create(ProductInput{Name: "", Description: "", Price: 0, ImagePath: ""})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 4)

	// Nothing was written.
	out, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestUpdate(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	p, err := store.Update(2, ProductInput{
		Name:        "Ceramic Mug XL",
		Description: "Bigger glazed mug",
		Price:       11.00,
		ImagePath:   "/assets/images/mug.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, 2, p.ID)
	require.Equal(t, "Ceramic Mug XL", p.Name)

	got, err := store.Get(2)
	require.NoError(t, err)
	require.Equal(t, 11.00, got.Price)

	_, err = store.Update(99, ProductInput{
		Name: "x", Description: "y", Price: 1, ImagePath: "/z.jpg",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	deleted, err := store.Delete(1)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = store.Delete(1)
	require.NoError(t, err)
	require.False(t, deleted)

	out, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestRoundTripMutations(t *testing.T) {
	store, _ := seedStore(t, sampleProducts())

	_, err := store.Create(ProductInput{
		Name: "Linen Towel", Description: "Stonewashed", Price: 15, ImagePath: "/t.jpg",
	})
	require.NoError(t, err)
	_, err = store.Update(3, ProductInput{
		Name: "Oak Basket", Description: "Split oak basket", Price: 32, ImagePath: "/b.jpg",
	})
	require.NoError(t, err)
	_, err = store.Delete(2)
	require.NoError(t, err)

	out, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, []int{1, 3, 4}, []int{out[0].ID, out[1].ID, out[2].ID})
	require.Equal(t, "Oak Basket", out[1].Name)
}

func TestCacheInvalidatedByFileChange(t *testing.T) {
	store, path := seedStore(t, sampleProducts())

	// Warm the cache.
	_, err := store.List("", 0)
	require.NoError(t, err)

	replaced := []Product{
		{ID: 7, Name: "New Thing", Description: "Replaced externally", Price: 1, ImagePath: "/n.jpg"},
	}
	data, err := json.Marshal(replaced)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	// Force a visible mtime change regardless of filesystem resolution.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	out, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 7, out[0].ID)
}

func TestFailedWriteLeavesCollectionIntact(t *testing.T) {
	store, path := seedStore(t, sampleProducts())

	// Warm the cache, then make the path unwritable by swapping the file
	// for a directory with the same mtime.
	_, err := store.List("", 0)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	_, err = store.Create(ProductInput{
		Name: "Linen Towel", Description: "Stonewashed", Price: 15, ImagePath: "/t.jpg",
	})
	require.Error(t, err)

	// The collection the store serves is still the pre-failure one.
	out, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "Clay Bowl", out[0].Name)
}

func TestInvalidStoredRecordBlocksRewrite(t *testing.T) {
	store, path := seedStore(t, sampleProducts())

	// An externally edited file with a broken record must never be
	// overwritten by a later mutation.
	bad := sampleProducts()
	bad[1].Price = 0
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = store.Create(ProductInput{
		Name: "Linen Towel", Description: "Stonewashed", Price: 15, ImagePath: "/t.jpg",
	})
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestCorruptFileFailsWithoutPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path)
	_, err := store.List("", 0)
	require.Error(t, err)
}
