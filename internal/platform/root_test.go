package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig(t *testing.T) {
	// Create a temp directory structure
	// /tmp/
	//   project/ (datastore.yaml)
	//     subdir/
	//       nested/
	//   empty/

	baseDir := t.TempDir()
	projectDir := filepath.Join(baseDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	emptyDir := filepath.Join(baseDir, "empty")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(emptyDir, 0755); err != nil {
		t.Fatal(err)
	}
	// A directory with a config name is not a config file.
	if err := os.Mkdir(filepath.Join(subDir, "datastore.yml"), 0755); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(projectDir, "datastore.yaml")
	if err := os.WriteFile(configPath, []byte("resources: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		startPath string
		want      string
		wantErr   bool
	}{
		{
			name:      "Start at Root",
			startPath: projectDir,
			want:      configPath,
		},
		{
			name:      "Start in Subdir",
			startPath: subDir,
			want:      configPath,
		},
		{
			name:      "Start Nested Deeply",
			startPath: nestedDir,
			want:      configPath,
		},
		{
			name:      "No Config Found",
			startPath: emptyDir,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConfig(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != "" && filepath.Clean(got) != filepath.Clean(tt.want) {
				t.Errorf("FindConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}
