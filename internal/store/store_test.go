package store

import (
	"errors"
	"testing"
	"time"

	"github.com/zulandar/boxcar/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testStore creates a Store over an in-memory SQLite database.
func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Message{}, &models.Post{}, &models.File{}, &models.MediaType{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return New(db, NewSnowflake(1))
}

func seedMessage(t *testing.T, s *Store, msg models.Message) models.Message {
	t.Helper()
	if err := s.InsertMessage(&msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}

func TestInsertMessage_AssignsID(t *testing.T) {
	s := testStore(t)
	msg := seedMessage(t, s, models.Message{FileID: "abc"})
	if msg.ID == 0 {
		t.Fatal("InsertMessage left ID zero")
	}
	got, err := s.GetMessage(msg.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.FileID != "abc" {
		t.Errorf("FileID = %q", got.FileID)
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetMessage(42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPromoteEmptyFileID(t *testing.T) {
	s := testStore(t)
	empty := seedMessage(t, s, models.Message{FileID: "", FileStatus: models.StatusWaiting, Text: "plain text"})
	media := seedMessage(t, s, models.Message{FileID: "f1", FileStatus: models.StatusWaiting})
	downloading := seedMessage(t, s, models.Message{FileID: "", FileStatus: models.StatusDownloading})

	n, err := s.PromoteEmptyFileID()
	if err != nil {
		t.Fatalf("PromoteEmptyFileID: %v", err)
	}
	if n != 1 {
		t.Errorf("promoted %d rows, want 1", n)
	}

	for _, tt := range []struct {
		id   int64
		want int
	}{
		{empty.ID, models.StatusMoved},
		{media.ID, models.StatusWaiting},
		{downloading.ID, models.StatusDownloading},
	} {
		got, err := s.GetMessage(tt.id)
		if err != nil {
			t.Fatal(err)
		}
		if got.FileStatus != tt.want {
			t.Errorf("message %d status = %d, want %d", tt.id, got.FileStatus, tt.want)
		}
	}
}

func TestReclaimStuck(t *testing.T) {
	s := testStore(t)
	now := time.Now().Unix()
	stuck := seedMessage(t, s, models.Message{FileID: "f1", FileStatus: models.StatusDownloading, DownloadTime: now - 7200})
	fresh := seedMessage(t, s, models.Message{FileID: "f2", FileStatus: models.StatusDownloading, DownloadTime: now - 10})
	// download_time of 0 means never attempted; must not be reclaimed.
	zero := seedMessage(t, s, models.Message{FileID: "f3", FileStatus: models.StatusDownloading, DownloadTime: 0})

	n, err := s.ReclaimStuck(now - 3600)
	if err != nil {
		t.Fatalf("ReclaimStuck: %v", err)
	}
	if n != 1 {
		t.Errorf("reclaimed %d rows, want 1", n)
	}

	got, _ := s.GetMessage(stuck.ID)
	if got.FileStatus != models.StatusWaiting || got.DownloadTime != 0 {
		t.Errorf("stuck row = status %d, download_time %d; want 0, 0", got.FileStatus, got.DownloadTime)
	}
	got, _ = s.GetMessage(fresh.ID)
	if got.FileStatus != models.StatusDownloading {
		t.Error("fresh download was reclaimed")
	}
	got, _ = s.GetMessage(zero.ID)
	if got.FileStatus != models.StatusDownloading {
		t.Error("zero download_time row was reclaimed")
	}
}

func TestSelectWaiting_FIFOAndSizeCeiling(t *testing.T) {
	s := testStore(t)
	big := seedMessage(t, s, models.Message{FileID: "big", FileStatus: models.StatusWaiting, FileSize: 5000})
	first := seedMessage(t, s, models.Message{FileID: "a", FileStatus: models.StatusWaiting, FileSize: 10})
	second := seedMessage(t, s, models.Message{FileID: "b", FileStatus: models.StatusWaiting, FileSize: 20})
	seedMessage(t, s, models.Message{FileID: "", FileStatus: models.StatusWaiting})
	seedMessage(t, s, models.Message{FileID: "c", FileStatus: models.StatusMoved})

	msgs, err := s.SelectWaiting(10, 1000)
	if err != nil {
		t.Fatalf("SelectWaiting: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d rows, want 2", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Errorf("order = [%d %d], want [%d %d]", msgs[0].ID, msgs[1].ID, first.ID, second.ID)
	}

	// No ceiling selects the big one too.
	msgs, err = s.SelectWaiting(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Errorf("got %d rows without ceiling, want 3", len(msgs))
	}
	_ = big

	// Limit is respected.
	msgs, err = s.SelectWaiting(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Errorf("got %d rows with limit 1", len(msgs))
	}
}

func TestMarkDownloading(t *testing.T) {
	s := testStore(t)
	msg := seedMessage(t, s, models.Message{FileID: "f1", FileStatus: models.StatusWaiting, DownloadTimes: 2})

	now := time.Now().Unix()
	if err := s.MarkDownloading([]int64{msg.ID}, now); err != nil {
		t.Fatalf("MarkDownloading: %v", err)
	}
	got, _ := s.GetMessage(msg.ID)
	if got.FileStatus != models.StatusDownloading {
		t.Errorf("status = %d", got.FileStatus)
	}
	if got.DownloadTime != now {
		t.Errorf("download_time = %d, want %d", got.DownloadTime, now)
	}
	if got.DownloadTimes != 3 {
		t.Errorf("download_times = %d, want 3", got.DownloadTimes)
	}
}

func TestResetToWaiting(t *testing.T) {
	s := testStore(t)
	msg := seedMessage(t, s, models.Message{FileID: "f1", FileStatus: models.StatusDownloading, DownloadTime: 999})
	if err := s.ResetToWaiting(msg.ID); err != nil {
		t.Fatalf("ResetToWaiting: %v", err)
	}
	got, _ := s.GetMessage(msg.ID)
	if got.FileStatus != models.StatusWaiting || got.DownloadTime != 0 {
		t.Errorf("got status %d download_time %d", got.FileStatus, got.DownloadTime)
	}
}

func TestDuplicatePathFlow(t *testing.T) {
	s := testStore(t)
	moved := seedMessage(t, s, models.Message{FileID: "blob", FileStatus: models.StatusMoved, Path: "2024-10/photos/A/1.jpg"})
	dup := seedMessage(t, s, models.Message{FileID: "blob", FileStatus: models.StatusDownloading})
	other := seedMessage(t, s, models.Message{FileID: "other", FileStatus: models.StatusDownloading})

	path, err := s.FindDuplicatePath("blob")
	if err != nil {
		t.Fatalf("FindDuplicatePath: %v", err)
	}
	if path != moved.Path {
		t.Errorf("path = %q, want %q", path, moved.Path)
	}

	n, err := s.PropagateDuplicatePath("blob", path)
	if err != nil {
		t.Fatalf("PropagateDuplicatePath: %v", err)
	}
	if n != 1 {
		t.Errorf("propagated %d rows, want 1", n)
	}
	got, _ := s.GetMessage(dup.ID)
	if got.Path != moved.Path || got.FileStatus != models.StatusMoved {
		t.Errorf("dup row = %q status %d", got.Path, got.FileStatus)
	}
	got, _ = s.GetMessage(other.ID)
	if got.Path != "" {
		t.Error("unrelated file_id was touched")
	}

	// No duplicate for unknown blobs.
	path, err = s.FindDuplicatePath("missing")
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
}

func TestCreatePostWithFiles_DuplicateGroup(t *testing.T) {
	s := testStore(t)

	post := models.Post{ID: s.NextID(), MediaGroupID: 77, Contents: "Hello"}
	files := []models.File{
		{ID: s.NextID(), PostID: post.ID, MediaGroupID: 77, Path: "a.jpg"},
		{ID: s.NextID(), PostID: post.ID, MediaGroupID: 77, Path: "b.jpg"},
	}
	if err := s.CreatePostWithFiles(&post, files); err != nil {
		t.Fatalf("CreatePostWithFiles: %v", err)
	}

	again := models.Post{ID: s.NextID(), MediaGroupID: 77}
	err := s.CreatePostWithFiles(&again, nil)
	if !errors.Is(err, ErrPostExists) {
		t.Errorf("err = %v, want ErrPostExists", err)
	}

	existing, err := s.ExistingPost(77)
	if err != nil {
		t.Fatal(err)
	}
	if existing == nil || existing.ID != post.ID {
		t.Errorf("ExistingPost = %+v, want id %d", existing, post.ID)
	}

	none, err := s.ExistingPost(88)
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Errorf("ExistingPost(88) = %+v, want nil", none)
	}

	nFiles, _ := s.CountFiles()
	if nFiles != 2 {
		t.Errorf("CountFiles = %d, want 2", nFiles)
	}
	nPosts, _ := s.CountPosts()
	if nPosts != 1 {
		t.Errorf("CountPosts = %d, want 1", nPosts)
	}
}

func TestBulkStatusAndCounts(t *testing.T) {
	s := testStore(t)
	a := seedMessage(t, s, models.Message{FileID: "a", FileStatus: models.StatusMoved})
	b := seedMessage(t, s, models.Message{FileID: "b", FileStatus: models.StatusMoved})
	c := seedMessage(t, s, models.Message{FileID: "c", FileStatus: models.StatusWaiting})

	if err := s.MarkPosted([]int64{a.ID, b.ID}); err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}
	if err := s.MarkSkipped([]int64{c.ID}); err != nil {
		t.Fatalf("MarkSkipped: %v", err)
	}

	counts, err := s.StatusCounts()
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts[models.StatusPosted] != 2 || counts[models.StatusSkipped] != 1 {
		t.Errorf("counts = %v", counts)
	}

	n, err := s.CountByStatus(models.StatusPosted)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountByStatus(posted) = %d", n)
	}
}

func TestSelectMoved_Order(t *testing.T) {
	s := testStore(t)
	first := seedMessage(t, s, models.Message{FileID: "a", FileStatus: models.StatusMoved})
	second := seedMessage(t, s, models.Message{FileID: "b", FileStatus: models.StatusMoved})
	seedMessage(t, s, models.Message{FileID: "c", FileStatus: models.StatusWaiting})

	msgs, err := s.SelectMoved(10)
	if err != nil {
		t.Fatalf("SelectMoved: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Errorf("SelectMoved = %+v", msgs)
	}
}
