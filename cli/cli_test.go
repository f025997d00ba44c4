package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/testutils"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"depthmesh"}, args...))
	return out.String(), err
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	//nolint:gosec
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	return len(strings.Split(strings.TrimSpace(string(data)), "\n"))
}

// flatDataDir writes a constant disparity grid that the default kinect model maps to one depth.
func flatDataDir(t *testing.T, rows, cols int) string {
	t.Helper()
	dm, _ := testutils.FlatScene(t, rows, cols, 500, 580)
	return testutils.WriteDataDir(t, dm, 580)
}

func TestProjectCommand(t *testing.T) {
	dir := flatDataDir(t, 4, 5)
	outDir := t.TempDir()
	out, err := runApp(t, "--output", outDir, "project", "--plots", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 20 points")

	//nolint:gosec
	pcd, err := os.ReadFile(filepath.Join(outDir, PointsPCDFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(pcd), test.ShouldContainSubstring, "WIDTH 5")
	test.That(t, string(pcd), test.ShouldContainSubstring, "HEIGHT 4")
	_, err = os.Stat(filepath.Join(outDir, HeatMapFile))
	test.That(t, err, test.ShouldBeNil)
}

func TestMeshCommand(t *testing.T) {
	dir := flatDataDir(t, 7, 9)
	outDir := t.TempDir()
	out, err := runApp(t, "--output", outDir, "mesh", "--stride", "2", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 20 points")
	test.That(t, countLines(t, filepath.Join(outDir, MeshPointsFile)), test.ShouldEqual, 20)
	// 4x5 grid after decimation
	test.That(t, countLines(t, filepath.Join(outDir, MeshEdgesFile)), test.ShouldEqual, 4*4*3+5+4-2)
}

func TestFitCommand(t *testing.T) {
	dir := flatDataDir(t, 7, 9)
	outDir := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "fit.log")
	out, err := runApp(t, "--output", outDir, "--log-file", logPath, "fit", "--stride", "2", "--plots", "--histogram-bins", "5", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "converged: true")
	test.That(t, out, test.ShouldContainSubstring, "EDGE ERROR")
	test.That(t, countLines(t, filepath.Join(outDir, SolutionFile)), test.ShouldEqual, 20)
	for _, name := range []string{HeatMapFile, InitialLayoutFile, FittedLayoutFile} {
		_, err := os.Stat(filepath.Join(outDir, name))
		test.That(t, err, test.ShouldBeNil)
	}

	//nolint:gosec
	logs, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "fit finished")
}

func TestConfigFile(t *testing.T) {
	dir := flatDataDir(t, 7, 9)
	outDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "depthmesh.json")
	doc := `{"stride": 3, "solver": {"method": "lbfgs"}, "output": {"dir": "` + outDir + `", "pcd_format": "binary", "las": true}}`
	test.That(t, os.WriteFile(cfgPath, []byte(doc), 0o600), test.ShouldBeNil)

	_, err := runApp(t, "--config", cfgPath, "mesh", dir)
	test.That(t, err, test.ShouldBeNil)
	// 3x3 grid after decimation
	test.That(t, countLines(t, filepath.Join(outDir, MeshPointsFile)), test.ShouldEqual, 9)

	_, err = runApp(t, "--config", cfgPath, "project", dir)
	test.That(t, err, test.ShouldBeNil)
	//nolint:gosec
	pcd, err := os.ReadFile(filepath.Join(outDir, PointsPCDFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(pcd), test.ShouldContainSubstring, "DATA binary")
	las, err := pointcloud.NewFromLASFile(filepath.Join(outDir, PointsLASFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, las.Size(), test.ShouldEqual, 7*9)

	badPath := filepath.Join(t.TempDir(), "bad.json")
	test.That(t, os.WriteFile(badPath, []byte(`{"stride": -1}`), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "--config", badPath, "mesh", dir)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSensorCapture(t *testing.T) {
	dir := t.TempDir()
	dm, _ := testutils.FlatScene(t, 6, 8, 500, 640)
	f, err := os.Create(filepath.Join(dir, SensorMatrixFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.WriteText(f), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	img := image.NewGray(image.Rect(0, 0, 16, 12))
	img.Set(1, 1, color.White)
	f, err = os.Create(filepath.Join(dir, SensorImageFile))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	outDir := t.TempDir()
	out, err := runApp(t, "--output", outDir, "mesh", "--sensor", "--stride", "2", dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 12 points")

	_, err = runApp(t, "--output", outDir, "mesh", dir)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigSchemaCommand(t *testing.T) {
	out, err := runApp(t, "config-schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "depth_model")
	test.That(t, out, test.ShouldContainSubstring, "pcd_format")
}

func TestBadArguments(t *testing.T) {
	_, err := runApp(t, "project")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "data_dir")

	_, err = runApp(t, "mesh", filepath.Join(t.TempDir(), "missing"))
	test.That(t, err, test.ShouldNotBeNil)

	dir := flatDataDir(t, 3, 3)
	_, err = runApp(t, "--output", t.TempDir(), "mesh", "--stride", "0", dir)
	test.That(t, err, test.ShouldNotBeNil)
}
