package docdb

import (
	"context"
	"testing"
	"time"
)

func mustOpen(t *testing.T) *Engine {
	t.Helper()
	e, err := OpenMem()
	if err != nil {
		t.Fatalf("OpenMem: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func mustParse(t *testing.T, js string) Value {
	t.Helper()
	v, err := ParseJSON([]byte(js))
	if err != nil {
		t.Fatalf("ParseJSON(%s): %v", js, err)
	}
	return v
}

func TestSetGetDelete(t *testing.T) {
	e := mustOpen(t)
	doc := mustParse(t, `{"name":"ana","age":30}`)

	if err := e.Set("user:1", doc); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := e.Get("user:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(doc) {
		t.Fatalf("Get = %+v, want %+v", got, doc)
	}

	if err := e.Delete("user:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.Get("user:1"); !NotFound(err) {
		t.Fatalf("Get after delete = %v, want KindNotFound", err)
	}
}

func TestSetOverwriteUpdatesIndex(t *testing.T) {
	e := mustOpen(t)
	if err := e.Set("doc:1", mustParse(t, `{"status":"pending"}`)); err != nil {
		t.Fatal(err)
	}
	if err := e.Set("doc:1", mustParse(t, `{"status":"done"}`)); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	oldMatches, err := e.Query(ctx, QueryRequest{Query: Eq("status", Str("pending"), LitString)})
	if err != nil {
		t.Fatal(err)
	}
	if len(oldMatches) != 0 {
		t.Fatalf("stale index entry still matches: %+v", oldMatches)
	}

	newMatches, err := e.Query(ctx, QueryRequest{Query: Eq("status", Str("done"), LitString)})
	if err != nil {
		t.Fatal(err)
	}
	if len(newMatches) != 1 || newMatches[0].Key != "doc:1" {
		t.Fatalf("newMatches = %+v", newMatches)
	}
}

func TestQueryNestedAndBoolean(t *testing.T) {
	e := mustOpen(t)
	docs := map[string]string{
		"p:1": `{"profile":{"settings":{"enabled":true}},"tier":"gold"}`,
		"p:2": `{"profile":{"settings":{"enabled":false}},"tier":"gold"}`,
		"p:3": `{"profile":{"settings":{"enabled":true}},"tier":"silver"}`,
	}
	batch := make(map[string]Value, len(docs))
	for k, js := range docs {
		batch[k] = mustParse(t, js)
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}

	q := And(
		Eq("profile.settings.enabled", Bool(true), LitBool),
		Eq("tier", Str("gold"), LitString),
	)
	res, err := e.Query(context.Background(), QueryRequest{Query: q})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Key != "p:1" {
		t.Fatalf("res = %+v, want only p:1", res)
	}
}

func TestQueryPagination(t *testing.T) {
	e := mustOpen(t)
	batch := make(map[string]Value)
	for i := 0; i < 10; i++ {
		key := "item:" + string(rune('0'+i))
		batch[key] = mustParse(t, `{"kind":"widget"}`)
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}

	q := Eq("kind", Str("widget"), LitString)
	all, err := e.Query(context.Background(), QueryRequest{Query: q})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 10 {
		t.Fatalf("all = %d, want 10", len(all))
	}

	page, err := e.Query(context.Background(), QueryRequest{Query: q, Offset: 3, Limit: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 4 {
		t.Fatalf("page len = %d, want 4", len(page))
	}

	tail, err := e.Query(context.Background(), QueryRequest{Query: q, Offset: 8, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 2 {
		t.Fatalf("tail len = %d, want 2", len(tail))
	}

	empty, err := e.Query(context.Background(), QueryRequest{Query: q, Offset: 100, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("empty len = %d, want 0", len(empty))
	}
}

func TestQueryProjectionKeepsOnlyRequestedPaths(t *testing.T) {
	e := mustOpen(t)
	if err := e.Set("doc:1", mustParse(t, `{"name":"ana","secret":"x","address":{"city":"porto"}}`)); err != nil {
		t.Fatal(err)
	}
	res, err := e.Query(context.Background(), QueryRequest{
		Query:      Eq("name", Str("ana"), LitString),
		Projection: []string{"name", "address.city"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("res = %+v", res)
	}
	if _, ok := res[0].Doc.Field("secret"); ok {
		t.Fatalf("projected doc leaked unrequested field: %+v", res[0].Doc)
	}
	city, ok := getByPath(res[0].Doc, "address.city")
	if !ok || city.Str != "porto" {
		t.Fatalf("projected address.city = %+v, ok=%v", city, ok)
	}
}

func TestQueryCancellation(t *testing.T) {
	e := mustOpen(t)
	batch := make(map[string]Value)
	for i := 0; i < 5; i++ {
		batch["k"+string(rune('a'+i))] = mustParse(t, `{"x":1}`)
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Query(ctx, QueryRequest{Query: Eq("x", Int(1), LitNumber)})
	if !Cancelled(err) {
		t.Fatalf("Query with cancelled ctx = %v, want KindCancelled", err)
	}
}

func TestQueryNeOverAbsentPathUnderNotForcesEvalFallback(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{
		"p:1": mustParse(t, `{"a":1}`),          // no "status" field; a==1
		"p:2": mustParse(t, `{"status":"ok"}`),  // has "status", a absent
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}

	// planKeys returns nil for the Not branch, and an Or with a nil side
	// is nil too, so the whole query falls back to a full scan (plan.go)
	// and this exercises Eval's NodeNe case directly rather than the
	// indexed scanPathComplement path.
	q := Or(
		Ne("status", Str("banned"), LitString),
		Not(Eq("a", Int(1), LitNumber)),
	)
	res, err := e.Query(context.Background(), QueryRequest{Query: q})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Key != "p:2" {
		t.Fatalf("res = %+v, want only p:2 (p:1 has a==1 and no status field)", res)
	}
}

func TestGeoWithinRadius(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{
		"place:near": mustParse(t, `{"loc":{"lat":41.1579,"lon":-8.6291}}`), // Porto
		"place:far":  mustParse(t, `{"loc":{"lat":38.7223,"lon":-9.1393}}`), // Lisbon
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}
	res, err := e.Query(context.Background(), QueryRequest{
		Query: GeoWithinRadius("loc", 41.1579, -8.6291, 1000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Key != "place:near" {
		t.Fatalf("res = %+v, want only place:near", res)
	}
}

func TestGeoInBox(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{
		"place:inside":  mustParse(t, `{"loc":{"lat":41.1,"lon":-8.6}}`),
		"place:outside": mustParse(t, `{"loc":{"lat":38.7,"lon":-9.1}}`),
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}
	res, err := e.Query(context.Background(), QueryRequest{
		Query: GeoInBox("loc", 40.0, -9.0, 42.0, -8.0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Key != "place:inside" {
		t.Fatalf("res = %+v, want only place:inside", res)
	}
}

func TestTransactionAtomicity(t *testing.T) {
	e := mustOpen(t)
	if err := e.Set("a", mustParse(t, `{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	muts := []Mutation{
		SetMutation("b", mustParse(t, `{"v":2}`)),
		DeleteMutation("a"),
		SetMutation("c", mustParse(t, `{"v":3}`)),
	}
	if err := e.Transaction(muts); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Get("a"); !NotFound(err) {
		t.Fatalf("a should be deleted, got err=%v", err)
	}
	if _, err := e.Get("b"); err != nil {
		t.Fatalf("b should exist: %v", err)
	}
	if _, err := e.Get("c"); err != nil {
		t.Fatalf("c should exist: %v", err)
	}
}

func TestClearPrefix(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{
		"session:1": mustParse(t, `{"v":1}`),
		"session:2": mustParse(t, `{"v":2}`),
		"user:1":    mustParse(t, `{"v":3}`),
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}
	n, err := e.ClearPrefix("session:")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("ClearPrefix deleted %d, want 2", n)
	}
	if _, err := e.Get("user:1"); err != nil {
		t.Fatalf("user:1 should survive: %v", err)
	}
	if _, err := e.Get("session:1"); !NotFound(err) {
		t.Fatalf("session:1 should be gone")
	}
}

func TestDropDatabase(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{"a": mustParse(t, `{}`), "b": mustParse(t, `{}`)}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}
	n, err := e.DropDatabase()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("DropDatabase returned %d, want 2", n)
	}
	stats, err := e.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 0 {
		t.Fatalf("Documents after drop = %d, want 0", stats.Documents)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{
		"a": mustParse(t, `{"x":1}`),
		"b": mustParse(t, `{"y":"z"}`),
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}
	items, err := e.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("Export len = %d, want 2", len(items))
	}

	e2 := mustOpen(t)
	if err := e2.Import(items); err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		got, err := e2.Get(it.Key)
		if err != nil {
			t.Fatalf("Get(%q) after import: %v", it.Key, err)
		}
		if !got.Equal(it.Value) {
			t.Fatalf("Get(%q) = %+v, want %+v", it.Key, got, it.Value)
		}
	}
}

func TestExportImportJSONStringRoundTrip(t *testing.T) {
	e := mustOpen(t)
	batch := map[string]Value{
		"a": mustParse(t, `{"x":1}`),
		"b": mustParse(t, `{"y":"z"}`),
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}
	items, err := e.Export()
	if err != nil {
		t.Fatal(err)
	}
	snapshot := string(EncodeJSONDocuments(items))

	e2 := mustOpen(t)
	if err := e2.ImportJSON(snapshot); err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		got, err := e2.Get(it.Key)
		if err != nil {
			t.Fatalf("Get(%q) after ImportJSON: %v", it.Key, err)
		}
		if !got.Equal(it.Value) {
			t.Fatalf("Get(%q) = %+v, want %+v", it.Key, got, it.Value)
		}
	}
}

func TestBatchSetPublishesEventsInKeyOrder(t *testing.T) {
	e := mustOpen(t)
	ch, cancel := e.Hub().SubscribeAll()
	defer cancel()

	batch := map[string]Value{
		"c": mustParse(t, `{"v":1}`),
		"a": mustParse(t, `{"v":2}`),
		"b": mustParse(t, `{"v":3}`),
	}
	if err := e.BatchSet(batch); err != nil {
		t.Fatal(err)
	}

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case ev := <-ch:
			got = append(got, ev.Key)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestTransactionDuplicateKeyPublishesOneEvent(t *testing.T) {
	e := mustOpen(t)
	ch, cancel := e.Hub().SubscribeAll()
	defer cancel()

	muts := []Mutation{
		SetMutation("k", mustParse(t, `{"v":1}`)),
		DeleteMutation("k"),
	}
	if err := e.Transaction(muts); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-ch:
		if ev.Key != "k" {
			t.Fatalf("ev.Key = %q, want k", ev.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubPublishesOnCommit(t *testing.T) {
	e := mustOpen(t)
	ch, cancel := e.Hub().SubscribeKey("watched")
	defer cancel()

	if err := e.Set("watched", mustParse(t, `{"v":1}`)); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-ch:
		if ev.Key != "watched" {
			t.Fatalf("ev.Key = %q, want watched", ev.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestHubDropsSlowSubscriberWithoutBlockingCommit(t *testing.T) {
	e := mustOpen(t)
	ch, cancel := e.Hub().SubscribeAll()
	defer cancel()

	// fill the subscriber's queue without draining it
	for i := 0; i < subscriberQueueSize+5; i++ {
		if err := e.Set("k", mustParse(t, `{"v":1}`)); err != nil {
			t.Fatalf("Set #%d: %v", i, err)
		}
	}
	// the commit path must never have blocked on ch; draining is best effort
	select {
	case <-ch:
	default:
	}
}
