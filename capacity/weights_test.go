package capacity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
)

func arrival(unit, category, count, weight string) capacity.ArrivalRecord {
	return capacity.ArrivalRecord{Unit: unit, Category: category, Count: v(count), Weight: v(weight)}
}

// =============================================================================
// WEIGHT CATALOG TESTS
// =============================================================================

func TestWeightOverride_ReplacesWeight(t *testing.T) {
	// GIVEN: arrivals [(Cat1, count=10, weight=1.0)] and override [(Cat1, 2.0)]
	arrivals := []capacity.ArrivalRecord{arrival("A", "Cat1", "10", "1.0")}
	catalog := capacity.NewWeightCatalog(arrivals).WithOverrides([]capacity.WeightOverride{
		{Category: "Cat1", Weight: v("2.0")},
	})

	// WHEN: Aggregating
	points := capacity.AggregateArrivals(arrivals, catalog)

	// THEN: AP is 20, not 10
	ap, ok := points.Get("A")
	require.True(t, ok)
	assert.True(t, v("20").Equal(ap), "got %s", ap)
}

func TestWeightOverride_OtherCategoriesKeepOwnWeight(t *testing.T) {
	arrivals := []capacity.ArrivalRecord{
		arrival("A", "Cat1", "10", "1.0"),
		arrival("A", "Cat2", "4", "0.5"),
		arrival("A", "Cat2", "2", "0.75"),
	}
	catalog := capacity.NewWeightCatalog(arrivals).WithOverrides([]capacity.WeightOverride{
		{Category: " Cat1 ", Weight: v("3")},
	})

	points := capacity.AggregateArrivals(arrivals, catalog)

	// 10*3 + 4*0.5 + 2*0.75
	ap, _ := points.Get("A")
	assert.True(t, v("33.5").Equal(ap), "got %s", ap)
}

func TestWeightOverride_CaseSensitive(t *testing.T) {
	arrivals := []capacity.ArrivalRecord{arrival("A", "Cat1", "10", "1")}
	catalog := capacity.NewWeightCatalog(arrivals).WithOverrides([]capacity.WeightOverride{
		{Category: "cat1", Weight: v("5")},
	})

	ap, _ := capacity.AggregateArrivals(arrivals, catalog).Get("A")
	assert.True(t, v("10").Equal(ap))
	assert.Equal(t, []string{"cat1"}, catalog.Unmatched())
}

func TestWeightOverride_UnmatchedHasNoEffect(t *testing.T) {
	arrivals := []capacity.ArrivalRecord{arrival("A", "Cat1", "10", "1")}
	catalog := capacity.NewWeightCatalog(arrivals).WithOverrides([]capacity.WeightOverride{
		{Category: "Ghost", Weight: v("9")},
		{Category: "Ghost", Weight: v("8")},
	})

	points := capacity.AggregateArrivals(arrivals, catalog)

	assert.Equal(t, []string{"A"}, points.Units, "no unit is synthesized")
	assert.Equal(t, []string{"Ghost"}, catalog.Unmatched())
	_, ok := catalog.Resolve("Ghost")
	assert.False(t, ok)
}

func TestWeightOverride_UndefinedWeightIgnored(t *testing.T) {
	arrivals := []capacity.ArrivalRecord{arrival("A", "Cat1", "10", "1.5")}
	catalog := capacity.NewWeightCatalog(arrivals).WithOverrides([]capacity.WeightOverride{
		{Category: "Cat1", Weight: generic.Undefined},
	})

	w, ok := catalog.Resolve("Cat1")
	require.True(t, ok)
	assert.True(t, v("1.5").Equal(w))
}

func TestWithOverrides_DoesNotMutateBase(t *testing.T) {
	arrivals := []capacity.ArrivalRecord{arrival("A", "Cat1", "10", "1")}
	base := capacity.NewWeightCatalog(arrivals)

	_ = base.WithOverrides([]capacity.WeightOverride{{Category: "Cat1", Weight: v("2")}})

	w, _ := base.Resolve("Cat1")
	assert.True(t, v("1").Equal(w))
	_, overridden := base.Override("Cat1")
	assert.False(t, overridden)
}

func TestCategories_SortedListing(t *testing.T) {
	catalog := capacity.NewWeightCatalog([]capacity.ArrivalRecord{
		arrival("A", "Zeta", "1", "0.2"),
		arrival("A", "Alpha", "1", ""),
		arrival("B", "Alpha", "1", "1.5"),
		arrival("B", "Zeta", "1", "9"),
		arrival("B", "Blank", "1", ""),
	})

	got := catalog.Categories()
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Category)
	assert.True(t, v("1.5").Equal(got[0].Weight), "first defined weight wins")
	assert.Equal(t, "Zeta", got[1].Category)
	assert.True(t, v("0.2").Equal(got[1].Weight))
}

// =============================================================================
// ARRIVAL AGGREGATOR TESTS
// =============================================================================

func TestAggregateArrivals_CoercesUndefinedToZero(t *testing.T) {
	arrivals := []capacity.ArrivalRecord{
		arrival("A", "Cat1", "", "1"),
		arrival("A", "Cat2", "3", ""),
		arrival("A", "Cat3", "2", "2"),
		arrival(" B ", "Cat3", "1", "2"),
	}

	points := capacity.AggregateArrivals(arrivals, capacity.NewWeightCatalog(arrivals))

	assert.Equal(t, []string{"A", "B"}, points.Units)
	a, _ := points.Get("A")
	assert.True(t, v("4").Equal(a))
	b, _ := points.Get("B")
	assert.True(t, v("2").Equal(b))
	require.Len(t, points.Corrections, 2)
	assert.Equal(t, "Count", points.Corrections[0].Column)
	assert.Equal(t, 1, points.Corrections[0].Row)
	assert.Equal(t, "Weight", points.Corrections[1].Column)
}
