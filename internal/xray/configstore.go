package xray

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client — одна запись clients управляемого inbound.
type Client struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Document — конфиг Xray, разобранный ровно настолько, насколько нужно.
// Все незнакомые поля и чужие inbound'ы остаются сырыми json.RawMessage
// и переписываются как есть: мы владеем только clients управляемого inbound.
type Document struct {
	root     map[string]json.RawMessage
	inbounds []json.RawMessage
}

// InboundSpec — дефолтное определение управляемого inbound.
type InboundSpec struct {
	Tag      string
	Port     int
	WSPath   string
	Security string
}

// ValidateFunc проверяет конфиг по указанному пути до подмены живого файла.
type ValidateFunc func(ctx context.Context, path string) error

// XrayValidator запускает `xray run -test -c <path>`; ненулевой код выхода
// означает невалидный конфиг, диагностика — в тексте ошибки.
func XrayValidator(bin string) ValidateFunc {
	return func(ctx context.Context, path string) error {
		out, err := exec.CommandContext(ctx, bin, "run", "-test", "-c", path).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

type Store struct {
	path     string
	spec     InboundSpec
	validate ValidateFunc
}

func NewStore(path string, spec InboundSpec, validate ValidateFunc) *Store {
	return &Store{path: path, spec: spec, validate: validate}
}

func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, s.path)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, s.path)
		default:
			return nil, err
		}
	}

	doc := &Document{}
	if err := json.Unmarshal(data, &doc.root); err != nil {
		return nil, fmt.Errorf("xray: parse config: %w", err)
	}
	if raw, ok := doc.root["inbounds"]; ok {
		if err := json.Unmarshal(raw, &doc.inbounds); err != nil {
			return nil, fmt.Errorf("xray: parse inbounds: %w", err)
		}
	}
	return doc, nil
}

// inboundProbe — минимум полей, чтобы опознать управляемый inbound.
type inboundProbe struct {
	Tag            string `json:"tag"`
	Protocol       string `json:"protocol"`
	StreamSettings struct {
		Network string `json:"network"`
	} `json:"streamSettings"`
}

// LocateManagedInbound ищет inbound сначала по тегу, затем по сигнатуре
// vless+ws — для конфигов, созданных до появления бота.
func (s *Store) LocateManagedInbound(doc *Document) int {
	for i, raw := range doc.inbounds {
		var p inboundProbe
		if json.Unmarshal(raw, &p) == nil && p.Tag == s.spec.Tag {
			return i
		}
	}
	for i, raw := range doc.inbounds {
		var p inboundProbe
		if json.Unmarshal(raw, &p) == nil && p.Protocol == "vless" && p.StreamSettings.Network == "ws" {
			return i
		}
	}
	return -1
}

// EnsureManagedInbound добавляет дефолтный inbound, если его ещё нет. Идемпотентно.
func (s *Store) EnsureManagedInbound(doc *Document) error {
	if s.LocateManagedInbound(doc) >= 0 {
		return nil
	}
	def := map[string]any{
		"tag":      s.spec.Tag,
		"port":     s.spec.Port,
		"protocol": "vless",
		"settings": map[string]any{
			"clients":    []Client{},
			"decryption": "none",
		},
		"streamSettings": map[string]any{
			"network":  "ws",
			"security": s.spec.Security,
			"wsSettings": map[string]any{
				"path": s.spec.WSPath,
			},
		},
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}
	doc.inbounds = append(doc.inbounds, raw)
	return nil
}

// Clients возвращает список клиентов управляемого inbound.
func (s *Store) Clients(doc *Document) ([]Client, error) {
	idx := s.LocateManagedInbound(doc)
	if idx < 0 {
		return nil, ErrNoManagedInbound
	}
	var ib struct {
		Settings struct {
			Clients []Client `json:"clients"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(doc.inbounds[idx], &ib); err != nil {
		return nil, fmt.Errorf("xray: parse managed inbound: %w", err)
	}
	return ib.Settings.Clients, nil
}

// SetClients заменяет clients управляемого inbound, не трогая остальные его поля.
func (s *Store) SetClients(doc *Document, clients []Client) error {
	idx := s.LocateManagedInbound(doc)
	if idx < 0 {
		return ErrNoManagedInbound
	}

	var ib map[string]json.RawMessage
	if err := json.Unmarshal(doc.inbounds[idx], &ib); err != nil {
		return fmt.Errorf("xray: parse managed inbound: %w", err)
	}

	settings := map[string]json.RawMessage{}
	if raw, ok := ib["settings"]; ok {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return fmt.Errorf("xray: parse inbound settings: %w", err)
		}
	}
	if _, ok := settings["decryption"]; !ok {
		settings["decryption"] = json.RawMessage(`"none"`)
	}

	rawClients, err := json.Marshal(clients)
	if err != nil {
		return err
	}
	settings["clients"] = rawClients

	rawSettings, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	ib["settings"] = rawSettings

	rawInbound, err := json.Marshal(ib)
	if err != nil {
		return err
	}
	doc.inbounds[idx] = rawInbound
	return nil
}

func (s *Store) encode(doc *Document) ([]byte, error) {
	rawInbounds, err := json.Marshal(doc.inbounds)
	if err != nil {
		return nil, err
	}
	doc.root["inbounds"] = rawInbounds
	return json.MarshalIndent(doc.root, "", "  ")
}

// ApplySafely пишет конфиг во временный файл в той же директории, гоняет
// внешнюю валидацию по нему и только после успеха атомарно подменяет живой
// файл, оставив .bak-копию предыдущего. При любой ошибке живой конфиг
// остаётся нетронутым; вызывающий обязан выбросить своё in-memory состояние
// и начать заново с Load().
func (s *Store) ApplySafely(ctx context.Context, doc *Document) error {
	data, err := s.encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".xraycfg_*.json")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}

	if s.validate != nil {
		if err := s.validate(ctx, tmpPath); err != nil {
			return fmt.Errorf("%w: %s", ErrValidationRejected, err)
		}
	}

	// best-effort бэкап предыдущего живого конфига
	if prev, err := os.ReadFile(s.path); err == nil {
		_ = os.WriteFile(s.path+".bak", prev, 0o644)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: %s", ErrWriteFailed, err)
	}
	return nil
}
