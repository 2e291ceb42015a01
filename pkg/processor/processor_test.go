package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"main/pkg/models"
	"main/pkg/retry"
)

type fakeClient struct {
	metaByURL  map[string]*models.ItemMeta
	streams    map[string][]*models.StreamDescriptor
	collection *models.CollectionMeta
	members    []models.MemberRef
	failURLs   map[string]error
	transfers  []string
	rotations  int
}

func (f *fakeClient) ResolveItem(ctx context.Context, rawURL string) (*models.ItemMeta, error) {
	if err, ok := f.failURLs[rawURL]; ok {
		return nil, err
	}
	if meta, ok := f.metaByURL[rawURL]; ok {
		return meta, nil
	}
	return &models.ItemMeta{ID: "id-" + rawURL, Title: "Title for " + rawURL}, nil
}

func (f *fakeClient) ListStreams(ctx context.Context, itemID string) ([]*models.StreamDescriptor, error) {
	return f.streams[itemID], nil
}

func (f *fakeClient) ResolveCollection(ctx context.Context, rawURL string) (*models.CollectionMeta, error) {
	return f.collection, nil
}

func (f *fakeClient) EnumerateMembers(ctx context.Context, collectionID string) ([]models.MemberRef, error) {
	return f.members, nil
}

func (f *fakeClient) Transfer(ctx context.Context, stream *models.StreamDescriptor, destPath string, onProgress func(done, total int64)) error {
	f.transfers = append(f.transfers, destPath)
	if err := os.WriteFile(destPath, []byte("media data"), 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(5, 10)
		onProgress(10, 10)
	}
	return nil
}

func (f *fakeClient) Rotate() error {
	f.rotations++
	return nil
}

type fakePost struct {
	converts []string
	tags     []string
	tagErr   error
}

func (f *fakePost) Convert(ctx context.Context, inPath, outPath, format string) error {
	f.converts = append(f.converts, outPath)
	return os.WriteFile(outPath, []byte("converted"), 0644)
}

func (f *fakePost) Tag(ctx context.Context, path string, tags map[string]string) error {
	f.tags = append(f.tags, path)
	return f.tagErr
}

type ProcessorTestSuite struct {
	suite.Suite
	tempDir string
	client  *fakeClient
	post    *fakePost
	wf      *Workflow
}

func (s *ProcessorTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "processor_test_*")
	assert.NoError(s.T(), err)
	s.tempDir = tempDir

	s.client = &fakeClient{
		metaByURL: map[string]*models.ItemMeta{},
		streams:   map[string][]*models.StreamDescriptor{},
		failURLs:  map[string]error{},
	}
	s.post = &fakePost{}

	policy := retry.NewPolicy()
	policy.Jitter = func() time.Duration { return 0 }
	policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	s.wf = New(s.client, policy, s.post)
}

func (s *ProcessorTestSuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func (s *ProcessorTestSuite) queueVideo(url string) *models.DownloadItem {
	item := models.NewItem(url, models.KindVideo, "720p", "", s.tempDir)
	return item
}

// TestVideoDownload runs the full single-video path
func (s *ProcessorTestSuite) TestVideoDownload() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: "My Video"}
	s.client.streams["abc"] = []*models.StreamDescriptor{
		{URL: "https://cdn/v360.mp4", Container: "mp4", Height: 360},
		{URL: "https://cdn/v720.mp4", Container: "mp4", Height: 720},
	}

	var lastPct float64
	path, err := s.wf.Run(context.Background(), s.queueVideo("https://youtu.be/abc"),
		func(pct float64) { lastPct = pct })
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), filepath.Join(s.tempDir, "My Video.mp4"), path)
	assert.Equal(s.T(), float64(100), lastPct)
	assert.FileExists(s.T(), path)

	// the 720p rendition was picked
	assert.Len(s.T(), s.client.transfers, 1)
}

// TestVideoTitleSanitized strips filesystem-hostile characters
func (s *ProcessorTestSuite) TestVideoTitleSanitized() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: `Title: With? Invalid* Chars`}
	s.client.streams["abc"] = []*models.StreamDescriptor{{URL: "u", Container: "mp4", Height: 720}}

	path, err := s.wf.Run(context.Background(), s.queueVideo("https://youtu.be/abc"), nil)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), filepath.Join(s.tempDir, "Title_ With_ Invalid_ Chars.mp4"), path)
}

// TestSkipExisting completes immediately when the output is already there
func (s *ProcessorTestSuite) TestSkipExisting() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: "My Video"}
	s.client.streams["abc"] = []*models.StreamDescriptor{{URL: "u", Container: "mp4", Height: 720}}

	existing := filepath.Join(s.tempDir, "My Video.mp4")
	assert.NoError(s.T(), os.WriteFile(existing, []byte("already here"), 0644))

	var lastPct float64
	path, err := s.wf.Run(context.Background(), s.queueVideo("https://youtu.be/abc"),
		func(pct float64) { lastPct = pct })
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), existing, path)
	assert.Equal(s.T(), float64(100), lastPct)
	assert.Empty(s.T(), s.client.transfers)
}

// TestNoStreams fails with an unavailable classification
func (s *ProcessorTestSuite) TestNoStreams() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: "My Video"}

	_, err := s.wf.Run(context.Background(), s.queueVideo("https://youtu.be/abc"), nil)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), models.ErrUnavailable, models.KindOf(err))
	assert.Contains(s.T(), err.Error(), "select stream")
}

// TestAudioRename skips conversion when the container already matches
func (s *ProcessorTestSuite) TestAudioRename() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: "A Song"}
	s.client.streams["abc"] = []*models.StreamDescriptor{
		{URL: "u", Container: "mp3", Bitrate: 256},
	}

	item := models.NewItem("https://youtu.be/abc", models.KindAudio, "", "mp3", s.tempDir)
	path, err := s.wf.Run(context.Background(), item, nil)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), filepath.Join(s.tempDir, "A Song.mp3"), path)
	assert.FileExists(s.T(), path)
	assert.NoFileExists(s.T(), path+".tmp")
	assert.Empty(s.T(), s.post.converts)
	assert.Equal(s.T(), []string{path}, s.post.tags)
}

// TestAudioConvert transcodes when the container differs from the request
func (s *ProcessorTestSuite) TestAudioConvert() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: "A Song"}
	s.client.streams["abc"] = []*models.StreamDescriptor{
		{URL: "u", Container: "webm", Bitrate: 160},
	}

	item := models.NewItem("https://youtu.be/abc", models.KindAudio, "", "mp3", s.tempDir)
	path, err := s.wf.Run(context.Background(), item, nil)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), filepath.Join(s.tempDir, "A Song.mp3"), path)
	assert.Equal(s.T(), []string{path}, s.post.converts)
	assert.NoFileExists(s.T(), path+".tmp")
}

// TestAudioTagFailureSwallowed keeps the file when tagging fails
func (s *ProcessorTestSuite) TestAudioTagFailureSwallowed() {
	s.client.metaByURL["https://youtu.be/abc"] = &models.ItemMeta{ID: "abc", Title: "A Song"}
	s.client.streams["abc"] = []*models.StreamDescriptor{
		{URL: "u", Container: "mp3", Bitrate: 128},
	}
	s.post.tagErr = assert.AnError

	item := models.NewItem("https://youtu.be/abc", models.KindAudio, "", "mp3", s.tempDir)
	path, err := s.wf.Run(context.Background(), item, nil)
	assert.NoError(s.T(), err)
	assert.FileExists(s.T(), path)
}

// TestCollection downloads members into a subfolder and skips failures
func (s *ProcessorTestSuite) TestCollection() {
	s.client.collection = &models.CollectionMeta{ID: "col1", Title: "Mix: Vol 1", ItemCount: 3}
	s.client.members = []models.MemberRef{
		{URL: "https://youtu.be/m1", Title: "one"},
		{URL: "https://youtu.be/m2", Title: "two"},
		{URL: "https://youtu.be/m3", Title: "three"},
	}
	for _, id := range []string{"id-https://youtu.be/m1", "id-https://youtu.be/m3"} {
		s.client.streams[id] = []*models.StreamDescriptor{{URL: "u", Container: "mp4", Height: 720}}
	}
	s.client.failURLs["https://youtu.be/m2"] = models.NewDownloadError(models.ErrUnavailable, "member removed", "", nil)

	item := models.NewItem("https://www.youtube.com/playlist?list=PL1", models.KindVideo, "720p", "", s.tempDir)
	item.Collection = true
	item.Status = models.StatusQueuedCollection

	var progress []float64
	dir, err := s.wf.Run(context.Background(), item, func(pct float64) { progress = append(progress, pct) })
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), filepath.Join(s.tempDir, "Mix_ Vol 1"), dir)

	// failed member skipped, the rest downloaded
	assert.FileExists(s.T(), filepath.Join(dir, "Title for https___youtu.be_m1.mp4"))
	assert.NoFileExists(s.T(), filepath.Join(dir, "Title for https___youtu.be_m2.mp4"))
	assert.FileExists(s.T(), filepath.Join(dir, "Title for https___youtu.be_m3.mp4"))

	// progress counts processed members
	assert.Len(s.T(), progress, 3)
	assert.InDelta(s.T(), 33.3, progress[0], 0.1)
	assert.InDelta(s.T(), 66.7, progress[1], 0.1)
	assert.Equal(s.T(), float64(100), progress[2])
}

// TestCollection_DefaultFolder uses a fallback when the title is empty
func (s *ProcessorTestSuite) TestCollection_DefaultFolder() {
	s.client.collection = &models.CollectionMeta{ID: "col1"}

	item := models.NewItem("https://www.youtube.com/playlist?list=PL1", models.KindVideo, "720p", "", s.tempDir)
	item.Collection = true
	item.Status = models.StatusQueuedCollection

	dir, err := s.wf.Run(context.Background(), item, nil)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), filepath.Join(s.tempDir, "Collection"), dir)
	assert.DirExists(s.T(), dir)
}

// TestCollection_Cancellation stops between members
func (s *ProcessorTestSuite) TestCollection_Cancellation() {
	s.client.collection = &models.CollectionMeta{ID: "col1", Title: "Mix"}
	s.client.members = []models.MemberRef{
		{URL: "https://youtu.be/m1", Title: "one"},
		{URL: "https://youtu.be/m2", Title: "two"},
	}
	s.client.streams["id-https://youtu.be/m1"] = []*models.StreamDescriptor{{URL: "u", Container: "mp4", Height: 720}}
	s.client.streams["id-https://youtu.be/m2"] = []*models.StreamDescriptor{{URL: "u", Container: "mp4", Height: 720}}

	ctx, cancel := context.WithCancel(context.Background())
	item := models.NewItem("https://www.youtube.com/playlist?list=PL1", models.KindVideo, "720p", "", s.tempDir)
	item.Collection = true
	item.Status = models.StatusQueuedCollection

	_, err := s.wf.Run(ctx, item, func(pct float64) {
		// cancel after the first member finishes
		cancel()
	})
	assert.ErrorIs(s.T(), err, context.Canceled)
	assert.Len(s.T(), s.client.transfers, 1)
}

func TestProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}
