package security

import (
	"regexp"
	"strings"
	"sync"
)

// Scanner holds the configuration behind CheckDomainAccess/AnalyseContent.
// A *Scanner is safe for concurrent use; the package-level CheckDomainAccess
// and AnalyseContent share one process-wide Scanner built from DefaultConfig.
type Scanner struct {
	mu     sync.RWMutex
	config Config
}

// NewScanner constructs a Scanner with the given Config.
func NewScanner(cfg Config) *Scanner {
	return &Scanner{config: cfg}
}

var (
	// pipeToShellPattern matches the classic supply-chain dropper shape: a
	// network fetch piped directly into a shell or interpreter. Unlike a
	// bare mention of "curl" or "wget" - both common in legitimate README
	// and install-script source - piping straight into an interpreter has
	// no innocent reading.
	pipeToShellPattern = regexp.MustCompile(`(?i)(curl|wget|iwr|invoke-webrequest)\b[^|\n]*\|\s*(sh|bash|zsh|sudo|iex|powershell)\b`)

	// destructivePatterns are one-liners with no legitimate use in package
	// install/build scripts.
	destructivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`rm\s+-rf\s+/(\s|["'$]|$)`),
		regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
		regexp.MustCompile(`dd\s+if=/dev/(zero|urandom)\s+of=/dev/(sd|nvme|hd)`),
	}

	// awsKeyPattern and privateKeyPattern flag likely-accidental credential
	// leakage. These warn rather than block: a fixture or test vector
	// legitimately containing a fake key is a false positive we don't want
	// to fail an otherwise-valid version over.
	awsKeyPattern     = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	privateKeyPattern = regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`)
)

// AnalyseContent scans content for supply-chain risk: an install script
// piping a network fetch into a shell, an explicit destructive command, or
// embedded credential material. It is deliberately narrow - dependency
// source legitimately contains base64 blobs, high-entropy minified code,
// and the word "eval" - so detection here requires a specific, low-noise
// pattern rather than any single suspicious keyword, to avoid marking a
// version Failed over ordinary library code.
func (s *Scanner) AnalyseContent(content string, source SourceContext) (*Result, error) {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	if !cfg.Enabled || len(content) < 20 {
		return &Result{Safe: true, Action: ActionAllow}, nil
	}
	if cfg.MaxScanSize > 0 && len(content) > cfg.MaxScanSize {
		content = content[:cfg.MaxScanSize]
	}

	var factors []string
	action := ActionAllow

	for _, pattern := range destructivePatterns {
		if pattern.MatchString(content) {
			factors = append(factors, "destructive shell command")
			action = ActionBlock
			break
		}
	}
	if action != ActionBlock && pipeToShellPattern.MatchString(content) {
		factors = append(factors, "network fetch piped into a shell interpreter")
		action = ActionBlock
	}
	if action != ActionBlock && (awsKeyPattern.MatchString(content) || privateKeyPattern.MatchString(content)) {
		factors = append(factors, "embedded credential material")
		action = ActionWarn
	}

	if action == ActionAllow {
		return &Result{Safe: true, Action: ActionAllow}, nil
	}
	return &Result{
		Safe:        false,
		Action:      action,
		Message:     "content flagged: " + strings.Join(factors, ", "),
		ID:          contentFlagID(source),
		RiskFactors: factors,
	}, nil
}

func contentFlagID(source SourceContext) string {
	switch {
	case source.Domain != "":
		return "content:" + source.Domain
	case source.URL != "":
		return "content:" + source.URL
	default:
		return "content:unknown"
	}
}
