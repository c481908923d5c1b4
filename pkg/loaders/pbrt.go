package loaders

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-stochastic-raytracer/pkg/core"
)

// ErrUnsupported marks PBRT directives, shapes or materials outside the supported subset
var ErrUnsupported = errors.New("unsupported pbrt feature")

// PBRTStatement represents a parsed PBRT statement
type PBRTStatement struct {
	Type       string               // Directive (Camera, Material, Shape, ...)
	Subtype    string               // Quoted subtype (perspective, diffuse, sphere, ...)
	Parameters map[string]PBRTParam // Named parameters
	Values     []float64            // Bare numeric arguments (LookAt, Translate)
	Line       int                  // Line the statement starts on
}

// PBRTParam represents a parameter with type and value(s)
type PBRTParam struct {
	Type   string   // Parameter type (float, integer, rgb, string, ...)
	Values []string // Parameter values as strings
}

// PBRTSphere is a sphere shape resolved against the graphics state in effect
// when it was declared
type PBRTSphere struct {
	Center   core.Vec3      // World-space center after translations
	Radius   float64        // Radius parameter, default 1
	Material *PBRTStatement // Active material; nil when none was declared
	Line     int
}

// PBRTScene contains all parsed PBRT scene data
type PBRTScene struct {
	// Pre-WorldBegin statements
	Eye        *core.Vec3 // LookAt eye position
	LookAt     *core.Vec3 // LookAt target
	Up         *core.Vec3 // LookAt up vector
	Camera     *PBRTStatement
	Film       *PBRTStatement
	Sampler    *PBRTStatement
	Integrator *PBRTStatement

	// World content
	Spheres []PBRTSphere
}

// graphicsState is the part of the PBRT attribute state this loader tracks
type graphicsState struct {
	material    *PBRTStatement
	translation core.Vec3
}

// PBRTParser encapsulates the state for parsing a PBRT stream
type PBRTParser struct {
	scene      *PBRTScene
	state      graphicsState
	stateStack []graphicsState
	inWorld    bool

	pending     []string // lines of the statement being accumulated
	pendingLine int
	logger      *slog.Logger
}

// NewPBRTParser creates a parser. A nil logger uses the shared core logger.
func NewPBRTParser(logger *slog.Logger) *PBRTParser {
	return &PBRTParser{
		scene:  &PBRTScene{},
		logger: core.LoggerOr(logger),
	}
}

// ParsePBRT parses PBRT content from an io.Reader
func ParsePBRT(reader io.Reader) (*PBRTScene, error) {
	parser := NewPBRTParser(nil)

	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if err := parser.processLine(scanner.Text(), lineNumber); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	if err := parser.flush(); err != nil {
		return nil, err
	}
	if len(parser.stateStack) > 0 {
		return nil, fmt.Errorf("%d AttributeBegin without matching AttributeEnd", len(parser.stateStack))
	}
	return parser.scene, nil
}

// LoadPBRT loads and parses a PBRT scene file
func LoadPBRT(filename string) (*PBRTScene, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PBRT file: %w", err)
	}
	defer file.Close()

	scene, err := ParsePBRT(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	return scene, nil
}

// processLine accumulates one input line, flushing the previous statement
// whenever a new directive starts
func (p *PBRTParser) processLine(line string, lineNumber int) error {
	if i := strings.Index(line, "#"); i >= 0 && !insideQuotes(line, i) {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if !isStatementStart(line) {
		if len(p.pending) == 0 {
			return fmt.Errorf("line %d: unexpected continuation %q", lineNumber, line)
		}
		p.pending = append(p.pending, line)
		return nil
	}

	if err := p.flush(); err != nil {
		return err
	}
	p.pending = []string{line}
	p.pendingLine = lineNumber
	return nil
}

// flush parses and applies the accumulated statement, if any
func (p *PBRTParser) flush() error {
	if len(p.pending) == 0 {
		return nil
	}
	text := strings.Join(p.pending, " ")
	p.pending = nil

	name := directiveName(text)
	if !knownDirectives[name] && !geometryDirectives[name] {
		p.logger.Warn("ignoring unknown pbrt directive", "directive", name, "line", p.pendingLine)
		return nil
	}

	stmt, err := parseStatement(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", p.pendingLine, err)
	}
	stmt.Line = p.pendingLine
	if err := p.apply(stmt); err != nil {
		return fmt.Errorf("line %d: %w", p.pendingLine, err)
	}
	return nil
}

// apply updates the scene or graphics state for a single statement
func (p *PBRTParser) apply(stmt *PBRTStatement) error {
	switch stmt.Type {
	case "WorldBegin":
		p.inWorld = true
		p.state = graphicsState{}
	case "WorldEnd":
		p.inWorld = false
	case "AttributeBegin":
		p.stateStack = append(p.stateStack, p.state)
	case "AttributeEnd":
		if len(p.stateStack) == 0 {
			return fmt.Errorf("AttributeEnd without AttributeBegin")
		}
		p.state = p.stateStack[len(p.stateStack)-1]
		p.stateStack = p.stateStack[:len(p.stateStack)-1]
	case "LookAt":
		return p.applyLookAt(stmt)
	case "Translate":
		if len(stmt.Values) != 3 {
			return fmt.Errorf("Translate requires 3 values, got %d", len(stmt.Values))
		}
		p.state.translation = p.state.translation.Add(core.NewVec3(stmt.Values[0], stmt.Values[1], stmt.Values[2]))
	case "Camera":
		if stmt.Subtype != "perspective" {
			return fmt.Errorf("camera %q: %w", stmt.Subtype, ErrUnsupported)
		}
		p.scene.Camera = stmt
	case "Film":
		p.scene.Film = stmt
	case "Sampler":
		p.scene.Sampler = stmt
	case "Integrator":
		p.scene.Integrator = stmt
	case "Material":
		p.state.material = stmt
	case "Shape":
		return p.applyShape(stmt)
	default:
		return fmt.Errorf("%s: %w", stmt.Type, ErrUnsupported)
	}
	return nil
}

func (p *PBRTParser) applyLookAt(stmt *PBRTStatement) error {
	if len(stmt.Values) != 9 {
		return fmt.Errorf("LookAt requires 9 values, got %d", len(stmt.Values))
	}
	v := stmt.Values
	eye := core.NewVec3(v[0], v[1], v[2])
	at := core.NewVec3(v[3], v[4], v[5])
	up := core.NewVec3(v[6], v[7], v[8])
	p.scene.Eye, p.scene.LookAt, p.scene.Up = &eye, &at, &up
	return nil
}

func (p *PBRTParser) applyShape(stmt *PBRTStatement) error {
	if !p.inWorld {
		return fmt.Errorf("Shape outside WorldBegin/WorldEnd")
	}
	if stmt.Subtype != "sphere" {
		return fmt.Errorf("shape %q: %w", stmt.Subtype, ErrUnsupported)
	}

	radius := 1.0
	if r, ok, err := stmt.FloatParam("radius"); err != nil {
		return err
	} else if ok {
		radius = r
	}

	p.scene.Spheres = append(p.scene.Spheres, PBRTSphere{
		Center:   p.state.translation,
		Radius:   radius,
		Material: p.state.material,
		Line:     stmt.Line,
	})
	return nil
}

// validateFilePath rejects paths that cannot be PBRT scene files
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("invalid file path: null bytes not allowed")
	}
	if len(filename) > 512 {
		return fmt.Errorf("file path too long: maximum 512 characters allowed")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pbrt") {
		return fmt.Errorf("invalid file type: only .pbrt files are allowed")
	}
	return nil
}

// knownDirectives lists the directives the loader applies or rejects. Any
// other directive is logged and skipped.
var knownDirectives = map[string]bool{
	"Camera": true, "Film": true, "Sampler": true, "Integrator": true, "LookAt": true,
	"Material": true, "Shape": true, "Translate": true,
	"WorldBegin": true, "WorldEnd": true, "AttributeBegin": true, "AttributeEnd": true,
}

// geometryDirectives change shapes, lights or transforms in ways spheres
// placed by Translate cannot represent
var geometryDirectives = map[string]bool{
	"LightSource": true, "AreaLightSource": true, "Texture": true,
	"Rotate": true, "Scale": true, "Transform": true, "ConcatTransform": true,
	"Identity": true, "CoordSysTransform": true, "ReverseOrientation": true,
	"ObjectBegin": true, "ObjectInstance": true,
}

// isStatementStart reports whether a line begins with a directive name: an
// unquoted identifier [A-Z][A-Za-z]* followed by whitespace, a quote, a
// bracket or the end of the line
func isStatementStart(line string) bool {
	if line == "" || line[0] < 'A' || line[0] > 'Z' {
		return false
	}
	i := 1
	for i < len(line) && (line[i] >= 'A' && line[i] <= 'Z' || line[i] >= 'a' && line[i] <= 'z') {
		i++
	}
	if i == len(line) {
		return true
	}
	switch line[i] {
	case ' ', '\t', '"', '[':
		return true
	}
	return false
}

// directiveName returns the leading identifier of a statement
func directiveName(text string) string {
	end := strings.IndexAny(text, " \t\"[")
	if end < 0 {
		return text
	}
	return text[:end]
}

// insideQuotes reports whether byte offset i of line falls inside a quoted string
func insideQuotes(line string, i int) bool {
	return strings.Count(line[:i], `"`)%2 == 1
}

// token is a lexical unit of a statement
type token struct {
	text   string
	quoted bool
}

// tokenizePBRT splits a statement into words, quoted strings and brackets
func tokenizePBRT(text string) ([]token, error) {
	var tokens []token
	var current strings.Builder

	flushWord := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{text: current.String()})
			current.Reset()
		}
	}

	inQuotes := false
	for _, char := range text {
		switch {
		case inQuotes:
			if char == '"' {
				tokens = append(tokens, token{text: current.String(), quoted: true})
				current.Reset()
				inQuotes = false
			} else {
				current.WriteRune(char)
			}
		case char == '"':
			flushWord()
			inQuotes = true
		case char == '[' || char == ']':
			flushWord()
			tokens = append(tokens, token{text: string(char)})
		case char == ' ' || char == '\t':
			flushWord()
		default:
			current.WriteRune(char)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	flushWord()
	return tokens, nil
}

// parseStatement parses a single (possibly multi-line) PBRT statement
func parseStatement(text string) (*PBRTStatement, error) {
	tokens, err := tokenizePBRT(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty statement")
	}

	stmt := &PBRTStatement{
		Type:       tokens[0].text,
		Parameters: make(map[string]PBRTParam),
	}
	rest := tokens[1:]

	// Transform-style directives take bare numbers, optionally bracketed
	switch stmt.Type {
	case "LookAt", "Translate", "Rotate", "Scale", "Transform", "ConcatTransform":
		for _, tok := range rest {
			if tok.text == "[" || tok.text == "]" {
				continue
			}
			v, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid number %q", stmt.Type, tok.text)
			}
			stmt.Values = append(stmt.Values, v)
		}
		return stmt, nil
	}

	if len(rest) > 0 && rest[0].quoted && !strings.Contains(rest[0].text, " ") {
		stmt.Subtype = rest[0].text
		rest = rest[1:]
	}

	for len(rest) > 0 {
		decl := rest[0]
		fields := strings.Fields(decl.text)
		if !decl.quoted || len(fields) != 2 {
			return nil, fmt.Errorf("%s: expected \"type name\" parameter declaration, got %q", stmt.Type, decl.text)
		}
		rest = rest[1:]
		if len(rest) == 0 {
			return nil, fmt.Errorf("%s: parameter %q has no value", stmt.Type, fields[1])
		}

		var values []string
		if rest[0].text == "[" && !rest[0].quoted {
			end := 1
			for end < len(rest) && !(rest[end].text == "]" && !rest[end].quoted) {
				values = append(values, rest[end].text)
				end++
			}
			if end == len(rest) {
				return nil, fmt.Errorf("%s: unterminated array for %q", stmt.Type, fields[1])
			}
			rest = rest[end+1:]
		} else {
			values = []string{rest[0].text}
			rest = rest[1:]
		}

		stmt.Parameters[fields[1]] = PBRTParam{Type: fields[0], Values: values}
	}

	return stmt, nil
}

// FloatParam extracts a float or integer parameter. ok is false when the
// parameter is absent; a present but malformed value is an error.
func (stmt *PBRTStatement) FloatParam(name string) (value float64, ok bool, err error) {
	param, exists := stmt.Parameters[name]
	if !exists {
		return 0, false, nil
	}
	if len(param.Values) != 1 {
		return 0, false, fmt.Errorf("%s %q: expected 1 value, got %d", stmt.Type, name, len(param.Values))
	}
	value, err = strconv.ParseFloat(param.Values[0], 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s %q: invalid number %q", stmt.Type, name, param.Values[0])
	}
	return value, true, nil
}

// IntParam extracts an integer parameter
func (stmt *PBRTStatement) IntParam(name string) (int, bool, error) {
	param, exists := stmt.Parameters[name]
	if !exists {
		return 0, false, nil
	}
	if len(param.Values) != 1 {
		return 0, false, fmt.Errorf("%s %q: expected 1 value, got %d", stmt.Type, name, len(param.Values))
	}
	value, err := strconv.Atoi(param.Values[0])
	if err != nil {
		return 0, false, fmt.Errorf("%s %q: invalid integer %q", stmt.Type, name, param.Values[0])
	}
	return value, true, nil
}

// RGBParam extracts an RGB color parameter
func (stmt *PBRTStatement) RGBParam(name string) (core.Vec3, bool, error) {
	param, exists := stmt.Parameters[name]
	if !exists {
		return core.Vec3{}, false, nil
	}
	if len(param.Values) != 3 {
		return core.Vec3{}, false, fmt.Errorf("%s %q: expected 3 values, got %d", stmt.Type, name, len(param.Values))
	}
	var rgb [3]float64
	for i, s := range param.Values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Vec3{}, false, fmt.Errorf("%s %q: invalid number %q", stmt.Type, name, s)
		}
		rgb[i] = v
	}
	return core.NewVec3(rgb[0], rgb[1], rgb[2]), true, nil
}
