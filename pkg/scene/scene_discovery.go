package scene

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
	"github.com/df07/go-stochastic-raytracer/pkg/renderer"
)

// ErrUnknownScene is returned for names that match no built-in scene or PBRT file
var ErrUnknownScene = errors.New("unknown scene")

// DefaultScenesDir is where PBRT scene files are discovered
const DefaultScenesDir = "scenes"

const builtinGroup = "Built-in Scenes"

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`                 // Name accepted by NewSceneByName
	Name        string `json:"name"`               // Scene name
	DisplayName string `json:"displayName"`        // UI display name
	Description string `json:"description"`        // Optional description
	Group       string `json:"group"`              // Grouping category
	Type        string `json:"type"`               // "builtin" or "pbrt"
	FilePath    string `json:"filePath,omitempty"` // Path to PBRT file (pbrt type only)
	Variant     string `json:"variant,omitempty"`  // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

// Options selects per-request scene parameters
type Options struct {
	Seed      int64                 // Layout seed for procedural scenes
	ScenesDir string                // PBRT directory; empty uses DefaultScenesDir
	Camera    renderer.CameraConfig // Non-zero fields override the scene camera
}

// builtinScenes lists the scenes constructed in code
var builtinScenes = []SceneInfo{
	{ID: "default", Name: "Two Spheres", Description: "Diffuse sphere on a huge ground sphere"},
	{ID: "materials", Name: "Materials", Description: "Glass, diffuse and metal spheres with depth of field"},
	{ID: "random", Name: "Random Spheres", Description: "Seeded field of small random spheres around three large ones"},
	{ID: "sphere-grid", Name: "Sphere Grid", Description: "20x20 grid of metal spheres colored in OKLCH"},
	{ID: "empty", Name: "Empty", Description: "No objects, background gradient only"},
}

// BuiltinScenes returns metadata for the scenes constructed in code
func BuiltinScenes() []SceneInfo {
	scenes := make([]SceneInfo, len(builtinScenes))
	for i, info := range builtinScenes {
		info.DisplayName = info.Name
		info.Group = builtinGroup
		info.Type = "builtin"
		scenes[i] = info
	}
	return scenes
}

// NewSceneByName builds a built-in scene, a PBRT scene from the scenes directory
// ("pbrt:<name>" or "<name>"), or a PBRT file given by path
func NewSceneByName(name string, opts Options) (*Scene, error) {
	overrides := []renderer.CameraConfig{opts.Camera}

	switch name {
	case "default":
		return NewDefaultScene(overrides...)
	case "materials":
		return NewMaterialsScene(overrides...)
	case "random":
		return NewRandomScene(opts.Seed, overrides...)
	case "sphere-grid":
		return NewSphereGridScene(20, overrides...)
	case "empty":
		return NewEmptyScene(overrides...)
	case "":
		return nil, fmt.Errorf("empty scene name: %w", ErrUnknownScene)
	}

	if strings.EqualFold(filepath.Ext(name), ".pbrt") {
		return NewPBRTScene(name, overrides...)
	}

	scenesDir := opts.ScenesDir
	if scenesDir == "" {
		scenesDir = DefaultScenesDir
	}
	baseName := strings.TrimPrefix(name, "pbrt:")
	if baseName != filepath.Base(baseName) {
		return nil, fmt.Errorf("scene %q: %w", name, ErrUnknownScene)
	}
	path := filepath.Join(scenesDir, baseName+".pbrt")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("scene %q: %w", name, ErrUnknownScene)
	}
	return NewPBRTScene(path, overrides...)
}

// ListPBRTScenes scans scenesDir and returns discovered PBRT scenes sorted by
// display name. A missing directory yields an empty list.
func ListPBRTScenes(scenesDir string) ([]SceneInfo, error) {
	if scenesDir == "" {
		scenesDir = DefaultScenesDir
	}
	if _, err := os.Stat(scenesDir); err != nil {
		return []SceneInfo{}, nil
	}

	files, err := filepath.Glob(filepath.Join(scenesDir, "*.pbrt"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	scenes := make([]SceneInfo, 0, len(files))
	for _, filePath := range files {
		sceneInfo, err := ParsePBRTMetadata(filePath)
		if err != nil {
			core.Logger().Warn("failed to parse scene metadata", "path", filePath, "error", err)
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})
	return scenes, nil
}

// ParsePBRTMetadata reads "# Key: value" header comments (Scene, Variant,
// Description, Group). Unreadable files fall back to values derived from the
// filename.
func ParsePBRTMetadata(filePath string) (SceneInfo, error) {
	baseName := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	info := SceneInfo{
		ID:       "pbrt:" + baseName,
		Name:     titleCase(baseName),
		Group:    "PBRT Scenes",
		Type:     "pbrt",
		FilePath: filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		info.DisplayName = info.Name
		return info, nil
	}
	defer file.Close()

	fields := map[string]*string{
		"Scene:":       &info.Name,
		"Variant:":     &info.Variant,
		"Description:": &info.Description,
		"Group:":       &info.Group,
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			break
		}
		content, ok := strings.CutPrefix(line, "# ")
		if !ok {
			continue
		}
		for key, dst := range fields {
			if value, found := strings.CutPrefix(content, key); found {
				if value = strings.TrimSpace(value); value != "" {
					*dst = value
				}
			}
		}
	}

	info.DisplayName = info.Name
	if info.Variant != "" {
		info.DisplayName = fmt.Sprintf("%s - %s", info.Name, info.Variant)
	}
	return info, scanner.Err()
}

// ListScenes returns built-in scenes followed by discovered PBRT scenes
func ListScenes(scenesDir string) ([]SceneInfo, error) {
	pbrtScenes, err := ListPBRTScenes(scenesDir)
	if err != nil {
		return nil, err
	}
	return append(BuiltinScenes(), pbrtScenes...), nil
}

// ListAllScenes returns every scene grouped by category, built-in first and
// the rest alphabetically
func ListAllScenes(scenesDir string) (ScenesResponse, error) {
	var response ScenesResponse

	all, err := ListScenes(scenesDir)
	if err != nil {
		return response, fmt.Errorf("failed to list scenes: %w", err)
	}

	groupMap := make(map[string][]SceneInfo)
	var groupNames []string
	for _, info := range all {
		if _, seen := groupMap[info.Group]; !seen && info.Group != builtinGroup {
			groupNames = append(groupNames, info.Group)
		}
		groupMap[info.Group] = append(groupMap[info.Group], info)
	}
	sort.Strings(groupNames)

	response.Groups = append(response.Groups, SceneGroup{Name: builtinGroup, Scenes: groupMap[builtinGroup]})
	for _, name := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{Name: name, Scenes: groupMap[name]})
	}
	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "two-spheres" -> "Two Spheres"
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
