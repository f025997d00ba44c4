package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("solving", "points", 12, "edges", 35)
	logger.Infof("residual %.3f", 0.5)
	test.That(t, logs.Len(), test.ShouldEqual, 2)

	entries := logs.All()
	test.That(t, entries[0].Message, test.ShouldEqual, "solving")
	test.That(t, entries[0].ContextMap()["points"], test.ShouldEqual, int64(12))
	test.That(t, entries[1].Message, test.ShouldEqual, "residual 0.500")

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Info("dropped")
	logger.Warn("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 3)
	test.That(t, logs.All()[2].Message, test.ShouldEqual, "kept")
}

func TestSublogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("fit").Sublogger("lm")
	sub.Errorw("unpaired", "key")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "fit.lm")
	test.That(t, logs.All()[0].ContextMap(), test.ShouldContainKey, "key")
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("DEBUG")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, DEBUG)

	level, err = LevelFromString(" warning ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)

	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depthmesh.log")
	appender := NewFileAppender(path, 1, 1)
	logger := NewBlankLogger("file")
	logger.AddAppender(appender)
	logger.Infow("wrote points", "count", 4)
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "wrote points")
	test.That(t, string(contents), test.ShouldContainSubstring, `"count":4`)
}
