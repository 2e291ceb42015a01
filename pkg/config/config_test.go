package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
}

func (suite *ConfigTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "config_test_*")
	assert.NoError(suite.T(), err)
	suite.tempDir = tempDir
}

func (suite *ConfigTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

// TestDefaults covers the built-in configuration
func (suite *ConfigTestSuite) TestDefaults() {
	cfg := defaults()
	assert.Equal(suite.T(), "Best Quality", cfg.Quality)
	assert.Equal(suite.T(), "mp3", cfg.AudioFormat)
	assert.Equal(suite.T(), "Downloads", cfg.OutPath)
	assert.Equal(suite.T(), "ffmpeg", cfg.FfmpegPath)
	assert.False(suite.T(), cfg.AudioOnly)
}

// TestApplyArgs gives command line values the last word
func (suite *ConfigTestSuite) TestApplyArgs() {
	cfg := defaults()
	applyArgs(cfg, &Args{
		Quality:     "720p",
		AudioFormat: "M4A",
		OutPath:     "/media/videos",
		AudioOnly:   true,
	})

	assert.Equal(suite.T(), "720p", cfg.Quality)
	assert.Equal(suite.T(), "m4a", cfg.AudioFormat)
	assert.Equal(suite.T(), "/media/videos", cfg.OutPath)
	assert.True(suite.T(), cfg.AudioOnly)
}

// TestApplyArgs_EmptyKeepsDefaults leaves unset flags alone
func (suite *ConfigTestSuite) TestApplyArgs_EmptyKeepsDefaults() {
	cfg := defaults()
	applyArgs(cfg, &Args{})

	assert.Equal(suite.T(), "Best Quality", cfg.Quality)
	assert.Equal(suite.T(), "mp3", cfg.AudioFormat)
	assert.Equal(suite.T(), "Downloads", cfg.OutPath)
}

// TestValidAudioFormats accepts only what the post-processor can produce
func (suite *ConfigTestSuite) TestValidAudioFormats() {
	for _, format := range []string{"mp3", "m4a", "wav", "ogg"} {
		assert.True(suite.T(), validAudioFormats[format], format)
	}
	assert.False(suite.T(), validAudioFormats["flac"])
	assert.False(suite.T(), validAudioFormats[""])
}

// TestProcessUrls_Dedupe de-duplicates case-insensitively, keeping order
func (suite *ConfigTestSuite) TestProcessUrls_Dedupe() {
	urls, err := processUrls([]string{
		"https://youtu.be/abc",
		"https://YOUTU.BE/ABC",
		"https://youtu.be/def",
	})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"https://youtu.be/abc", "https://youtu.be/def"}, urls)
}

// TestProcessUrls_TrimsTrailingSlash normalizes list entries
func (suite *ConfigTestSuite) TestProcessUrls_TrimsTrailingSlash() {
	urls, err := processUrls([]string{"https://youtu.be/abc/"})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"https://youtu.be/abc"}, urls)
}

// TestProcessUrls_TxtExpansion expands list files in place
func (suite *ConfigTestSuite) TestProcessUrls_TxtExpansion() {
	listFile := filepath.Join(suite.tempDir, "urls.txt")
	content := "https://youtu.be/one\n\nhttps://youtu.be/two\n  https://youtu.be/three  \n"
	assert.NoError(suite.T(), os.WriteFile(listFile, []byte(content), 0644))

	urls, err := processUrls([]string{listFile, "https://youtu.be/four"})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{
		"https://youtu.be/one",
		"https://youtu.be/two",
		"https://youtu.be/three",
		"https://youtu.be/four",
	}, urls)
}

// TestProcessUrls_MissingTxt surfaces the read error
func (suite *ConfigTestSuite) TestProcessUrls_MissingTxt() {
	_, err := processUrls([]string{filepath.Join(suite.tempDir, "nope.txt")})
	assert.Error(suite.T(), err)
}

// TestReadConfigFile_Missing is not an error, defaults stand
func (suite *ConfigTestSuite) TestReadConfigFile_Missing() {
	cwd, err := os.Getwd()
	assert.NoError(suite.T(), err)
	defer os.Chdir(cwd)
	assert.NoError(suite.T(), os.Chdir(suite.tempDir))

	cfg := defaults()
	assert.NoError(suite.T(), readConfigFile(cfg))
	assert.Equal(suite.T(), "Best Quality", cfg.Quality)
}

// TestReadConfigFile_Overlay merges file values over defaults
func (suite *ConfigTestSuite) TestReadConfigFile_Overlay() {
	cwd, err := os.Getwd()
	assert.NoError(suite.T(), err)
	defer os.Chdir(cwd)
	assert.NoError(suite.T(), os.Chdir(suite.tempDir))

	content := `{"quality": "1080p", "outPath": "/srv/media"}`
	assert.NoError(suite.T(), os.WriteFile("config.json", []byte(content), 0644))

	cfg := defaults()
	assert.NoError(suite.T(), readConfigFile(cfg))
	assert.Equal(suite.T(), "1080p", cfg.Quality)
	assert.Equal(suite.T(), "/srv/media", cfg.OutPath)
	// untouched keys keep their defaults
	assert.Equal(suite.T(), "mp3", cfg.AudioFormat)
}

// TestReadConfigFile_Invalid surfaces malformed JSON
func (suite *ConfigTestSuite) TestReadConfigFile_Invalid() {
	cwd, err := os.Getwd()
	assert.NoError(suite.T(), err)
	defer os.Chdir(cwd)
	assert.NoError(suite.T(), os.Chdir(suite.tempDir))

	assert.NoError(suite.T(), os.WriteFile("config.json", []byte("{not json"), 0644))
	assert.Error(suite.T(), readConfigFile(defaults()))
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
