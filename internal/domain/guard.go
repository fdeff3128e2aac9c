package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"

	m "github.com/mouse-blink/phpguard/internal/model"
	"github.com/mouse-blink/phpguard/internal/phpast"
)

const (
	// CheckName identifies the guard check in reports.
	CheckName = "Validate source-guard placement"

	// LegacyCheckName is the label older report consumers know the check by.
	LegacyCheckName = "Validate disallowed php functions"

	// DefaultSentinel is the constant phpBB defines before loading extension code.
	DefaultSentinel = "IN_PHPBB"
)

// Finding codes, usable in phpguard:ignore directives.
const (
	CodeParseError          = "parse-error"
	CodeMissingGuard        = "missing-guard"
	CodeNoExit              = "no-exit"
	CodeExtraStatements     = "extra-statements"
	CodeNamespaceStatements = "namespace-statements"
	CodeMisspelledSentinel  = "misspelled-sentinel"
)

// GuardOptions configures a [GuardChecker].
type GuardOptions struct {
	// Sentinel is the constant whose definedness the guard tests.
	Sentinel string
	// TestDirs lists first path segments, relative to the base directory,
	// whose files may omit the guard.
	TestDirs []string
	// Misspelling enables the notice for a sentinel that is almost right.
	Misspelling bool
	// MaxDistance is the largest edit distance still reported as a misspelling.
	MaxDistance int
	// LegacyLabel labels findings with LegacyCheckName instead of CheckName.
	LegacyLabel bool
	Logger      *slog.Logger
}

// DefaultGuardOptions returns the options used when nothing is configured.
func DefaultGuardOptions() GuardOptions {
	return GuardOptions{
		Sentinel:    DefaultSentinel,
		TestDirs:    []string{"test", "tests"},
		Misspelling: true,
		MaxDistance: 2,
	}
}

// GuardChecker verifies that PHP files start with the include guard
//
//	if (!defined('IN_PHPBB')) { exit; }
//
// A GuardChecker holds configuration only and is safe for concurrent use;
// every call to Check works on its own state.
type GuardChecker struct {
	opts  GuardOptions
	label string
	log   *slog.Logger
}

// NewGuardChecker creates a GuardChecker. Zero fields of opts fall back to
// [DefaultGuardOptions], except Misspelling which is taken as given.
func NewGuardChecker(opts GuardOptions) *GuardChecker {
	def := DefaultGuardOptions()
	if opts.Sentinel == "" {
		opts.Sentinel = def.Sentinel
	}

	if opts.TestDirs == nil {
		opts.TestDirs = def.TestDirs
	}

	if opts.MaxDistance <= 0 {
		opts.MaxDistance = def.MaxDistance
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	label := CheckName
	if opts.LegacyLabel {
		label = LegacyCheckName
	}

	return &GuardChecker{opts: opts, label: label, log: log}
}

// CheckInput is one parsed file handed to the checker.
type CheckInput struct {
	Path    m.Path
	Basedir m.Path
	Kind    m.FileKind
	File    *phpast.File
	// ParseErr is the parser's failure. When set, File is ignored.
	ParseErr error
}

// CheckResult is the outcome of [GuardChecker.Check].
type CheckResult struct {
	Findings   []m.Finding
	GuardFound bool
	Exempt     bool
}

// Check runs the guard check on one file.
func (c *GuardChecker) Check(in CheckInput) CheckResult {
	r := &guardRun{checker: c, file: in.Path}

	if in.ParseErr != nil {
		r.findings = append(r.findings, m.Finding{
			Severity: m.SeverityFatal,
			Message:  fmt.Sprintf("PHP parse error in file %s. Message: %s", in.Path, in.ParseErr),
			File:     in.Path,
			Line:     parseErrorLine(in.ParseErr),
			Check:    c.label,
			Code:     CodeParseError,
		})

		return r.result()
	}

	var tree []phpast.Statement
	if in.File != nil {
		tree = in.File.Statements
	}

	if in.Kind == m.LanguageResource {
		// Language files are a single array of strings; there is no
		// namespace to classify.
		r.scan(tree)
	} else {
		r.classify(tree)
	}

	if !r.guarded {
		r.exempt = c.validateShape(r, in, tree)
	}

	if in.File != nil {
		r.findings = buildIgnoreIndex(in.File).filter(r.findings)
	}

	return r.result()
}

// CheckTo runs Check and forwards the findings to sink as a single group.
func (c *GuardChecker) CheckTo(in CheckInput, sink Sink) CheckResult {
	res := c.Check(in)
	if len(res.Findings) > 0 {
		sink.Emit(res.Findings...)
	}

	return res
}

// guardRun is the state of one Check call.
type guardRun struct {
	checker  *GuardChecker
	file     m.Path
	guarded  bool
	exempt   bool
	findings []m.Finding
}

func (r *guardRun) result() CheckResult {
	return CheckResult{Findings: r.findings, GuardFound: r.guarded, Exempt: r.exempt}
}

// add records a finding; the file name is appended to the message.
func (r *guardRun) add(sev m.Severity, code string, line int, format string, args ...any) {
	r.findings = append(r.findings, m.Finding{
		Severity: sev,
		Message:  fmt.Sprintf("%s in %s", fmt.Sprintf(format, args...), r.file),
		File:     r.file,
		Line:     line,
		Check:    r.checker.label,
		Code:     code,
	})
}

// classify dispatches on the top-level shape. A namespaced file must consist
// of the namespace alone; its body is classified with the same rule.
func (r *guardRun) classify(stmts []phpast.Statement) {
	if len(stmts) == 0 {
		return
	}

	ns, ok := stmts[0].(*phpast.Namespace)
	if !ok {
		r.scan(stmts)

		return
	}

	r.classify(ns.Body)

	if len(stmts) > 1 {
		r.add(m.SeverityWarning, CodeNamespaceStatements, stmts[1].Pos(),
			"Besides the namespace, there should be no other statements in your file")
	}
}

// scan searches stmts depth-first for the guard.
func (r *guardRun) scan(stmts []phpast.Statement) {
	for _, s := range stmts {
		if n, ok := s.(*phpast.If); ok {
			r.scan(r.checkGuard(n))

			continue
		}

		r.scan(phpast.Children(s))
	}
}

// checkGuard inspects an if statement and returns the part of its body that
// still has to be searched.
func (r *guardRun) checkGuard(n *phpast.If) []phpast.Statement {
	sentinel := r.checker.opts.Sentinel

	name, ok := definedCheck(n.Cond)
	if !ok {
		return n.Body
	}

	if name != sentinel {
		r.checkMisspelling(n, name)

		return n.Body
	}

	terminates := len(n.Body) > 0 && isExit(n.Body[0])
	if terminates {
		r.guarded = true
	} else {
		r.add(m.SeverityNotice, CodeNoExit, n.Line, "%s check should exit if it is not defined", sentinel)
	}

	if len(n.Body) > 1 {
		r.add(m.SeverityNotice, CodeExtraStatements, n.Line,
			"There should be no other statements than exit in the %s check", sentinel)
	}

	if terminates {
		return n.Body[1:]
	}

	return n.Body
}

func (r *guardRun) checkMisspelling(n *phpast.If, name string) {
	opts := r.checker.opts
	if !opts.Misspelling || name == "" {
		return
	}

	if !strings.EqualFold(name, opts.Sentinel) && edlib.LevenshteinDistance(name, opts.Sentinel) > opts.MaxDistance {
		return
	}

	r.add(m.SeverityNotice, CodeMisspelledSentinel, n.Line, "Guard checks %s, expected %s", name, opts.Sentinel)
}

// definedCheck matches !defined('NAME') and returns NAME.
func definedCheck(cond phpast.Expression) (string, bool) {
	not, ok := cond.(*phpast.Not)
	if !ok {
		return "", false
	}

	call, ok := not.Operand.(*phpast.FunctionCall)
	if !ok || !strings.EqualFold(strings.TrimPrefix(call.Name, `\`), "defined") || len(call.Args) == 0 {
		return "", false
	}

	lit, ok := call.Args[0].(*phpast.Literal)
	if !ok {
		return "", false
	}

	return lit.Value, true
}

func isExit(s phpast.Statement) bool {
	_, ok := s.(*phpast.Exit)

	return ok
}

// validateShape decides whether a file without guard is exempt, and warns
// when it is not.
func (c *GuardChecker) validateShape(r *guardRun, in CheckInput, tree []phpast.Statement) bool {
	if declarationOnly(tree) {
		c.log.Debug("Guard not found, but file only contains classes or interfaces",
			slog.String("file", string(in.Path)),
			slog.String("sentinel", c.opts.Sentinel))

		return true
	}

	if isTestPath(in.Path, in.Basedir, c.opts.TestDirs) {
		c.log.Debug("Skipped file because of test file", slog.String("file", string(in.Path)))

		return true
	}

	r.add(m.SeverityWarning, CodeMissingGuard, 0, "%s is not defined", c.opts.Sentinel)

	return false
}

// declarationOnly reports whether tree is a single namespace holding only
// class, interface and use statements.
func declarationOnly(tree []phpast.Statement) bool {
	if len(tree) != 1 {
		return false
	}

	ns, ok := tree[0].(*phpast.Namespace)
	if !ok {
		return false
	}

	for _, s := range ns.Body {
		switch s.(type) {
		case *phpast.Class, *phpast.Interface, *phpast.Use:
		default:
			return false
		}
	}

	return true
}

// isTestPath reports whether the first segment of path relative to basedir
// is one of testDirs.
func isTestPath(path, basedir m.Path, testDirs []string) bool {
	rel := string(path)

	if basedir != "" {
		if r, err := filepath.Rel(string(basedir), rel); err == nil {
			rel = r
		}
	}

	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	first, _, _ := strings.Cut(rel, "/")

	return slices.Contains(testDirs, first)
}

func parseErrorLine(err error) int {
	var pe *phpast.ParseError
	if errors.As(err, &pe) {
		return pe.Line
	}

	return 0
}
