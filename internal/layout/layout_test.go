package layout

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"ganttline/internal/config"
	"ganttline/internal/datemath"
	"ganttline/internal/model"
)

func item(id, name, start, end string) model.Item {
	return model.Item{
		ID:    id,
		Name:  name,
		Start: datemath.MustParse(start),
		End:   datemath.MustParse(end),
	}
}

func sample() []model.Item {
	return []model.Item{
		item("A", "Design", "2021-01-01", "2021-01-03"),
		item("B", "Build", "2021-01-02", "2021-01-04"),
		item("C", "Ship", "2021-01-05", "2021-01-06"),
	}
}

func TestLayoutGeometry(t *testing.T) {
	res, err := NewEngine(DefaultOptions()).Layout(sample())
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	if res.Lanes != 2 {
		t.Fatalf("Lanes = %d, want 2", res.Lanes)
	}
	if len(res.Columns) != 6 {
		t.Fatalf("Columns = %d, want 6", len(res.Columns))
	}
	if res.TotalWidth != 6*60 {
		t.Fatalf("TotalWidth = %d, want 360", res.TotalWidth)
	}
	// Two lanes: 1*(36+6) + 36 + 8 + 8.
	if res.TotalHeight != 94 {
		t.Fatalf("TotalHeight = %d, want 94", res.TotalHeight)
	}

	want := map[string]Geometry{
		"A": {X: 0, Y: 8, Width: 180, Height: 36},
		"B": {X: 60, Y: 50, Width: 180, Height: 36},
		"C": {X: 240, Y: 8, Width: 120, Height: 36},
	}
	for id, g := range want {
		p, ok := res.Find(id)
		if !ok {
			t.Fatalf("item %s missing from result", id)
		}
		if p.Geometry != g {
			t.Errorf("%s geometry = %+v, want %+v", id, p.Geometry, g)
		}
	}
}

func TestLayoutEmpty(t *testing.T) {
	res, err := NewEngine(DefaultOptions()).Layout(nil)
	if err != nil {
		t.Fatalf("Layout(nil): %v", err)
	}
	if res.Lanes != 0 || len(res.Items) != 0 {
		t.Fatalf("empty layout has %d lanes and %d items", res.Lanes, len(res.Items))
	}
	if res.Extent.Start.String() != "2021-01-01" || res.Extent.End.String() != "2021-12-31" {
		t.Fatalf("empty extent = %s..%s", res.Extent.Start, res.Extent.End)
	}
	if len(res.Columns) != 365 {
		t.Fatalf("Columns = %d, want 365", len(res.Columns))
	}
	if res.TotalHeight != 52 {
		t.Fatalf("TotalHeight = %d, want 52", res.TotalHeight)
	}
}

func TestLayoutSingleDayItem(t *testing.T) {
	res, err := NewEngine(DefaultOptions()).Layout([]model.Item{item("x", "Launch", "2021-06-15", "2021-06-15")})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	p := res.Items[0]
	if p.X != 0 || p.Width != 60 {
		t.Fatalf("single day geometry = %+v, want x=0 width=60", p.Geometry)
	}
	if res.TotalWidth != 60 {
		t.Fatalf("TotalWidth = %d, want 60", res.TotalWidth)
	}
}

func TestLayoutRenameKeepsGeometry(t *testing.T) {
	eng := NewEngine(DefaultOptions())
	items := sample()
	before, err := eng.Layout(items)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	items[1].Name = "Build v2"
	after, err := eng.Layout(items)
	if err != nil {
		t.Fatalf("Layout after rename: %v", err)
	}

	if before.TotalWidth != after.TotalWidth || before.TotalHeight != after.TotalHeight {
		t.Fatalf("canvas changed after rename")
	}
	for _, p := range before.Items {
		q, _ := after.Find(p.ID)
		if q.Geometry != p.Geometry || q.Lane != p.Lane {
			t.Errorf("%s moved after rename: %+v -> %+v", p.ID, p.Geometry, q.Geometry)
		}
	}
	if q, _ := after.Find("B"); q.Name != "Build v2" {
		t.Fatalf("renamed item name = %q", q.Name)
	}
}

func TestLayoutIdempotent(t *testing.T) {
	eng := NewEngine(DefaultOptions())
	items := sample()

	a, err := eng.Layout(items)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	b, err := eng.Layout(items)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two layouts of the same input differ")
	}

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("JSON encodings differ:\n%s\n%s", ja, jb)
	}
}

func TestLayoutColumns(t *testing.T) {
	items := []model.Item{item("long", "Quarter", "2021-01-01", "2021-01-20")}
	res, err := NewEngine(DefaultOptions()).Layout(items)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for i, c := range res.Columns {
		if c.X != i*60 {
			t.Errorf("column %d x = %d, want %d", i, c.X, i*60)
		}
		if c.Major != (i%7 == 0) {
			t.Errorf("column %d major = %v", i, c.Major)
		}
		if c.Shaded != (i%2 == 1) {
			t.Errorf("column %d shaded = %v", i, c.Shaded)
		}
	}
	if res.Columns[0].Label != "Jan 1" || res.Columns[19].Label != "Jan 20" {
		t.Fatalf("labels = %q..%q", res.Columns[0].Label, res.Columns[19].Label)
	}
}

func TestLayoutRejectsInvalidInput(t *testing.T) {
	eng := NewEngine(DefaultOptions())

	_, err := eng.Layout([]model.Item{item("bad", "Backwards", "2021-02-10", "2021-02-01")})
	var re *model.InvalidRangeError
	if !errors.As(err, &re) {
		t.Fatalf("inverted range err = %v, want *model.InvalidRangeError", err)
	}
	if re.ID != "bad" {
		t.Fatalf("error id = %q", re.ID)
	}

	_, err = eng.Layout([]model.Item{
		item("dup", "One", "2021-01-01", "2021-01-01"),
		item("dup", "Two", "2021-01-02", "2021-01-02"),
	})
	if !errors.Is(err, model.ErrDuplicateID) {
		t.Fatalf("duplicate id err = %v, want ErrDuplicateID", err)
	}
}

func TestLayoutCustomOptions(t *testing.T) {
	opts := Options{ColumnWidth: 10, LaneHeight: 20, LaneGap: 0, TopPadding: 0, BottomPadding: 0, MajorTickEvery: 2}
	items := []model.Item{
		item("a", "a", "2021-01-01", "2021-01-02"),
		item("b", "b", "2021-01-01", "2021-01-02"),
		item("c", "c", "2021-01-01", "2021-01-02"),
	}
	res, err := NewEngine(opts).Layout(items)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if res.TotalHeight != 60 {
		t.Fatalf("TotalHeight = %d, want 60", res.TotalHeight)
	}
	if p, _ := res.Find("c"); p.Y != 40 {
		t.Fatalf("third lane y = %d, want 40", p.Y)
	}
	if !res.Columns[0].Major || res.Columns[1].Major {
		t.Fatalf("major ticks every 2 not honored")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	lc := config.DefaultConfig().Layout
	opts, err := OptionsFromConfig(lc)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if !reflect.DeepEqual(opts, DefaultOptions()) {
		t.Fatalf("default config options = %+v, want %+v", opts, DefaultOptions())
	}

	lc.EmptyStart, lc.EmptyEnd = "2030-01-01", "2030-01-07"
	opts, err = OptionsFromConfig(lc)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	res, err := NewEngine(opts).Layout(nil)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(res.Columns) != 7 || res.Extent.Start.String() != "2030-01-01" {
		t.Fatalf("custom empty extent not applied: %s, %d columns", res.Extent.Start, len(res.Columns))
	}

	lc.EmptyEnd = "2029-12-31"
	if _, err := OptionsFromConfig(lc); err == nil {
		t.Fatalf("inverted empty window accepted")
	}

	lc.EmptyEnd = "soon"
	var de *datemath.InvalidDateError
	if _, err := OptionsFromConfig(lc); !errors.As(err, &de) {
		t.Fatalf("bad empty_end err = %v, want *datemath.InvalidDateError", err)
	}
}
