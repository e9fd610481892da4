package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"incident_extract/config"
	"incident_extract/keywords"
)

const promptPreamble = `당신은 119 신고 대화에서 사건 속성을 추출하는 도메인 추출기입니다.
가능한 한 문맥과 상식으로 주어진 양식에 맞추어 추론하세요.
대화에서 근거를 찾을 수 없는 값은 추론하지 말고 비워 두세요. 할루시네이션을 일으키지 마세요.
'접수자(OPERATOR)의 질문'과 '신고자(CALLER)의 짧은 대답'도 단서입니다.
반드시 JSON 객체 하나만 출력하세요.
추가 지시사항 (숫자/단위 처리):
- 모든 수치값은 원문에 등장하면 반드시 지정된 타입으로 변환하세요.
- "total_floor_count"는 int로만 추출 (예: "10층 건물" → 10).
- "building_agreement_count"도 int로만 추출 (예: "120세대" → 120).
- "unit_temperature"는 float (예: "35도" → 35.0, "영하 3도" → -3.0).
- "unit_humidity"는 float (예: "60%" → 60.0).
- 목록(string[]) 값은 원문에 나온 표현을 그대로 쓰세요.`

// DefaultSystemPrompt is the built-in extraction instruction. It lists every
// field the model may fill together with its JSON type and, for enumerated
// fields, the allowed values.
var DefaultSystemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n")
	for _, f := range keywords.Fields() {
		if f.StrictOnly || len(f.Enum) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %q는 다음 중 하나: %s\n", f.Name, strings.Join(f.Enum, ", "))
	}
	b.WriteString("\n출력(JSON):\n{\n")
	fields := keywords.Fields()
	first := true
	for _, f := range fields {
		if f.StrictOnly {
			continue
		}
		if !first {
			b.WriteString(",\n")
		}
		first = false
		fmt.Fprintf(&b, "  %q: %q", f.Name, f.Kind.String())
	}
	b.WriteString("\n}\n")
	return b.String()
}

// PromptSource serves the current system prompt. When backed by a file it can
// watch that file and swap the prompt in place; readers never block.
type PromptSource struct {
	path    string
	current atomic.Pointer[string]
	label   atomic.Pointer[string]
}

// StaticPrompt returns a source that always serves prompt (or the default
// prompt when blank).
func StaticPrompt(prompt string) *PromptSource {
	p := &PromptSource{}
	p.set(config.ExtractionConfig{SystemPrompt: prompt})
	return p
}

// NewPromptSource loads the extraction block from path. An empty path yields
// the default prompt.
func NewPromptSource(path string) (*PromptSource, error) {
	p := &PromptSource{path: path}
	p.set(config.DefaultExtractionConfig())
	if path == "" {
		return p, nil
	}
	if err := p.Reload(); err != nil {
		return p, err
	}
	return p, nil
}

// Prompt returns the active system prompt.
func (p *PromptSource) Prompt() string {
	return *p.current.Load()
}

// ModelLabel returns the configured label override, or "".
func (p *PromptSource) ModelLabel() string {
	return *p.label.Load()
}

// Reload re-reads the backing file. On error the previous prompt stays.
func (p *PromptSource) Reload() error {
	if p.path == "" {
		return nil
	}
	cfg, err := config.LoadExtractionConfig(p.path)
	if err != nil {
		return fmt.Errorf("reload prompt %s: %w", p.path, err)
	}
	p.set(cfg)
	return nil
}

func (p *PromptSource) set(cfg config.ExtractionConfig) {
	prompt := cfg.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}
	label := strings.TrimSpace(cfg.ModelLabel)
	p.current.Store(&prompt)
	p.label.Store(&label)
}

// Watch reloads the prompt whenever the backing file is written or replaced.
// The parent directory is watched so editors that save through rename are
// picked up. It returns once the watcher is running; the goroutine stops when
// ctx is done.
func (p *PromptSource) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	target := filepath.Clean(p.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := p.Reload(); err != nil {
					zap.L().Warn("prompt reload failed", zap.String("path", p.path), zap.Error(err))
					continue
				}
				zap.L().Info("prompt reloaded", zap.String("path", p.path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("prompt watcher error", zap.Error(err))
			}
		}
	}()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}
	return nil
}
