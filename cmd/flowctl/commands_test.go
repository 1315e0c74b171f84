package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestPrintResultYAML проверяет вывод с именами полей из json-тегов.
func TestPrintResultYAML(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.PersistentFlags().Set("output", "yaml"))

	err := printResult(cmd, flows.CreditScoreResult{CreditScore: 720, RiskLevel: "Low", Insights: "steady income"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "creditScore: 720")
	assert.Contains(t, out.String(), "riskLevel: Low")
}

// TestPrintResultUnknownFormat проверяет отказ для неизвестного формата.
func TestPrintResultUnknownFormat(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("output", "xml"))

	assert.Error(t, printResult(cmd, flows.LiteracyAnswer{Answer: "x"}))
}

// TestParseBillRejectsUnsupportedFile проверяет проверку файла до обращения к модели.
func TestParseBillRejectsUnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))

	_, err := run(t, "parse-bill", path)
	assert.ErrorIs(t, err, datauri.ErrUnsupportedMedia)
}

// TestAskRequiresQuestion проверяет обязательный аргумент.
func TestAskRequiresQuestion(t *testing.T) {
	_, err := run(t, "ask")
	assert.Error(t, err)
}
