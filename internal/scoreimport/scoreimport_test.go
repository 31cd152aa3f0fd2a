package scoreimport_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/sync/errgroup"

	"encore/internal/events"
	"encore/internal/logging"
	"encore/internal/scoreimport"
	"encore/internal/sessions"
	"encore/internal/sources"
	"encore/internal/sources/batchmanual"
	"encore/internal/storage"
	"encore/internal/testsupport"
	"encore/internal/userstats"
)

const importType = "file/batch-manual"

func newImporter(t *testing.T, store *storage.Store) *scoreimport.Importer {
	t.Helper()

	registry, err := scoreimport.NewRegistry(batchmanual.New(store, importType))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	publisher := events.NewPublisher("", "encore:events", logging.NewNop())
	updater := userstats.NewUpdater(store, publisher)
	builder := sessions.NewBuilder(store, sessions.DefaultGap)
	return scoreimport.NewImporter(store, registry, builder, updater, 2)
}

// iidxBody builds a batch-manual envelope of iidx SP EX scores against the
// seeded chart (songID 1, ANOTHER, 786 notes).
func iidxBody(scores ...string) []byte {
	body := `{"head":{"service":"test-service","game":"iidx"},"scores":[`
	for i, s := range scores {
		if i > 0 {
			body += ","
		}
		body += s
	}
	return []byte(body + "]}")
}

func iidxScoreJSON(ex int, lamp string, at int64) string {
	return fmt.Sprintf(`{"identifier":"1","matchType":"songID","playtype":"SP","difficulty":"ANOTHER","score":%d,"lamp":%q,"timeAchieved":%d}`, ex, lamp, at)
}

func TestRunImportsAndComposesPB(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	im := newImporter(t, store)

	at := int64(1_700_000_000_000)
	// The higher EX play has the weaker lamp; the PB must take the score
	// from one play and the lamp from the other.
	body := iidxBody(
		iidxScoreJSON(1500, "CLEAR", at),
		iidxScoreJSON(1300, "FULL COMBO", at+600_000),
	)

	doc, err := im.Run(context.Background(), "import-1", 1, importType, sources.Input{Body: body}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(doc.ScoreIDs) != 2 {
		t.Fatalf("imported %d scores, want 2", len(doc.ScoreIDs))
	}
	if len(doc.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", doc.Errors)
	}
	if len(doc.CreatedSessions) != 1 || doc.CreatedSessions[0].Type != "Created" {
		t.Fatalf("sessions: %+v, want one Created", doc.CreatedSessions)
	}

	pb, err := store.FindPB(context.Background(), 1, "iidx-1-sp-another")
	if err != nil {
		t.Fatalf("FindPB: %v", err)
	}
	if pb == nil {
		t.Fatal("no PB after import")
	}
	if pb.ScoreData.Score != 1500 {
		t.Fatalf("pb score = %v, want 1500 from the score-best play", pb.ScoreData.Score)
	}
	if pb.ScoreData.Lamp != "FULL COMBO" {
		t.Fatalf("pb lamp = %q, want FULL COMBO from the lamp-best play", pb.ScoreData.Lamp)
	}
	if pb.ComposedFrom.ScorePB == pb.ComposedFrom.LampPB {
		t.Fatal("composed PB should trace back to two different plays")
	}

	stored, err := store.FindImport(context.Background(), "import-1")
	if err != nil {
		t.Fatalf("FindImport: %v", err)
	}
	if stored == nil || stored.ImportID != "import-1" {
		t.Fatalf("import document not stored under its ID: %+v", stored)
	}

	stats, err := store.FindGameStats(context.Background(), 1, "iidx", "SP")
	if err != nil {
		t.Fatalf("FindGameStats: %v", err)
	}
	if stats == nil {
		t.Fatal("no game stats after import")
	}
	if _, ok := stats.Ratings["ktRating"]; !ok {
		t.Fatalf("stats ratings missing ktRating: %+v", stats.Ratings)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	im := newImporter(t, store)

	at := int64(1_700_000_000_000)
	body := iidxBody(iidxScoreJSON(1400, "HARD CLEAR", at))

	first, err := im.Run(context.Background(), "import-1", 1, importType, sources.Input{Body: body}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(first.ScoreIDs) != 1 {
		t.Fatalf("first import: %d scores, want 1", len(first.ScoreIDs))
	}

	second, err := im.Run(context.Background(), "import-2", 1, importType, sources.Input{Body: body}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.ScoreIDs) != 0 {
		t.Fatalf("re-import added %d scores, want 0", len(second.ScoreIDs))
	}
	if len(second.CreatedSessions) != 0 {
		t.Fatalf("re-import touched sessions: %+v", second.CreatedSessions)
	}
	if len(second.Errors) != 0 {
		t.Fatalf("re-import reported errors: %+v", second.Errors)
	}
}

func TestRunDedupsWithinOneBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	im := newImporter(t, store)

	at := int64(1_700_000_000_000)
	same := iidxScoreJSON(1400, "HARD CLEAR", at)
	body := iidxBody(same, same)

	doc, err := im.Run(context.Background(), "import-1", 1, importType, sources.Input{Body: body}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(doc.ScoreIDs) != 1 {
		t.Fatalf("duplicate rows in one batch imported %d scores, want 1", len(doc.ScoreIDs))
	}
}

// Two submissions racing the same file through two jobs must not trip the
// score_id unique index: the loser's existence check has to run under the
// same lock as the winner's insert and silently discard.
func TestRunConcurrentDuplicateBatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	im := newImporter(t, store)

	at := int64(1_700_000_000_000)
	body := iidxBody(iidxScoreJSON(1400, "HARD CLEAR", at))

	docs := make([]*storage.ImportDocument, 2)
	var g errgroup.Group
	for i := range docs {
		g.Go(func() error {
			doc, err := im.Run(context.Background(), fmt.Sprintf("import-%d", i), 1, importType,
				sources.Input{Body: body}, nil, logging.NewNop())
			docs[i] = doc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Run: %v", err)
	}

	imported := len(docs[0].ScoreIDs) + len(docs[1].ScoreIDs)
	if imported != 1 {
		t.Fatalf("imported %d scores across both runs, want 1", imported)
	}
	if len(docs[0].Errors)+len(docs[1].Errors) != 0 {
		t.Fatalf("concurrent duplicate reported errors: %+v / %+v", docs[0].Errors, docs[1].Errors)
	}
}

func TestRunRecordsPerRecordFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedIIDXChart(t, store)
	im := newImporter(t, store)

	at := int64(1_700_000_000_000)
	body := iidxBody(
		iidxScoreJSON(1400, "HARD CLEAR", at),
		// Unknown song: skipped, not fatal.
		`{"identifier":"999","matchType":"songID","playtype":"SP","difficulty":"ANOTHER","score":100,"lamp":"CLEAR"}`,
		// Lamp from the wrong game: rejected, not fatal.
		`{"identifier":"1","matchType":"songID","playtype":"SP","difficulty":"ANOTHER","score":100,"lamp":"ULTIMATE CHAIN"}`,
	)

	doc, err := im.Run(context.Background(), "import-1", 1, importType, sources.Input{Body: body}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(doc.ScoreIDs) != 1 {
		t.Fatalf("imported %d scores, want 1", len(doc.ScoreIDs))
	}
	if len(doc.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %+v", len(doc.Errors), doc.Errors)
	}

	types := map[string]int{}
	for _, e := range doc.Errors {
		types[e.Type]++
	}
	if types["DataNotFound"] != 1 || types["InvalidScore"] != 1 {
		t.Fatalf("error types = %v, want one DataNotFound and one InvalidScore", types)
	}
}

func TestRunFatalOnBadEnvelope(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	im := newImporter(t, store)

	_, err := im.Run(context.Background(), "import-1", 1, importType,
		sources.Input{Body: []byte(`{"head":{"service":"ts","game":"not-a-game"},"scores":[]}`)}, nil, logging.NewNop())
	if err == nil {
		t.Fatal("expected a fatal error for an unsupported game")
	}
	fatal, ok := sources.AsFatal(err)
	if !ok {
		t.Fatalf("error is not fatal: %v", err)
	}
	if fatal.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", fatal.StatusCode)
	}
}

func TestRunRejectsUnknownImportType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	im := newImporter(t, store)

	_, err := im.Run(context.Background(), "import-1", 1, "api/nonexistent", sources.Input{}, nil, logging.NewNop())
	if err == nil {
		t.Fatal("expected an error for an unregistered import type")
	}
	fatal, ok := sources.AsFatal(err)
	if !ok || fatal.StatusCode != http.StatusBadRequest {
		t.Fatalf("want fatal 400, got %v", err)
	}
}

func TestRegistryRejectsDuplicateTypes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := scoreimport.NewRegistry(
		batchmanual.New(store, importType),
		batchmanual.New(store, importType),
	)
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
