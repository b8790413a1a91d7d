package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/logx"
)

// scriptSpec describes one generated helper script. Scripts come in two
// flavours: odoo-bin invocations through the venv python, and click-odoo
// console scripts installed into the venv.
type scriptSpec struct {
	name    string
	venvBin string // click-odoo binary name; empty means odoo-bin
	args    string // arguments before the passthrough args
	info    string
	needsDB bool
}

func scriptSpecs(dbName string) []scriptSpec {
	return []scriptSpec{
		{name: "run", args: `-c "${CONF}"`, info: "Starting Odoo server"},
		{name: "test", args: `-c "${CONF}" --test-enable --stop-after-init`, info: "Running Odoo tests"},
		{name: "shell", args: `shell -c "${CONF}"`, info: "Starting Odoo shell"},
		{name: "update", venvBin: "click-odoo-update", args: `-c "${CONF}" --log-level debug`, info: "Updating Odoo addons"},
		{name: "update_all", venvBin: "click-odoo-update", args: `-c "${CONF}" --update-all --log-level debug`, info: "Updating all Odoo addons"},
		{name: "initdb", venvBin: "click-odoo-initdb", needsDB: true,
			args: fmt.Sprintf(`-c "${CONF}" --no-demo --no-cache --unless-exists --log-level debug -n %q`, dbName),
			info: "Initializing database " + dbName},
		{name: "restore", venvBin: "click-odoo-restoredb", needsDB: true,
			args: fmt.Sprintf(`-c "${CONF}" --copy --neutralize --log-level debug %q`, dbName),
			info: "Restoring database " + dbName},
		{name: "restore_force", venvBin: "click-odoo-restoredb", needsDB: true,
			args: fmt.Sprintf(`-c "${CONF}" --copy --neutralize --force --log-level debug %q`, dbName),
			info: "Restoring database " + dbName + " (force)"},
	}
}

// ScriptWriter generates the helper scripts under the build layout's
// scripts directory.
type ScriptWriter struct {
	build   Layout
	windows bool
	log     zerolog.Logger
}

// NewScriptWriter creates a writer. windows selects .bat output with CRLF
// line endings instead of executable .sh files.
func NewScriptWriter(build Layout, windows bool) *ScriptWriter {
	return &ScriptWriter{build: build, windows: windows, log: logx.WithComponent("scripts")}
}

// WriteAll generates the full helper script set. Database-bound scripts
// (initdb, backup, restore, restore_force) are only generated when dbName
// is non-empty.
func (w *ScriptWriter) WriteAll(dbName string) error {
	for _, spec := range scriptSpecs(dbName) {
		if spec.needsDB && dbName == "" {
			continue
		}
		if err := w.write(spec); err != nil {
			return err
		}
	}
	if dbName != "" {
		if err := w.writeBackup(dbName); err != nil {
			return err
		}
	}
	if !w.windows {
		if err := w.writeFile("instance.sh", instanceSh, true); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the file names WriteAll would generate, for the run
// summary.
func (w *ScriptWriter) Names(dbName string) []string {
	ext := ".sh"
	if w.windows {
		ext = ".bat"
	}
	var names []string
	for _, spec := range scriptSpecs(dbName) {
		if spec.needsDB && dbName == "" {
			continue
		}
		names = append(names, spec.name+ext)
	}
	if dbName != "" {
		names = append(names, "backup"+ext)
	}
	if !w.windows {
		names = append(names, "instance.sh")
	}
	return names
}

func (w *ScriptWriter) write(spec scriptSpec) error {
	if w.windows {
		return w.writeFile(spec.name+".bat", renderBat(spec), false)
	}
	return w.writeFile(spec.name+".sh", renderSh(spec), true)
}

func (w *ScriptWriter) writeBackup(dbName string) error {
	if w.windows {
		return w.writeFile("backup.bat", renderBackupBat(dbName), false)
	}
	return w.writeFile("backup.sh", renderBackupSh(dbName), true)
}

func (w *ScriptWriter) writeFile(name, content string, executable bool) error {
	path := filepath.Join(w.build.ScriptsDir, name)
	perm := renameio.WithPermissions(0o644)
	if executable {
		perm = renameio.WithPermissions(0o755)
	}
	if w.windows {
		content = strings.ReplaceAll(content, "\n", "\r\n")
	}

	pending, err := renameio.NewPendingFile(path, perm)
	if err != nil {
		return fmt.Errorf("create pending script %s: %w", name, err)
	}
	defer func() { _ = pending.Cleanup() }()
	if _, err := pending.WriteString(content); err != nil {
		return fmt.Errorf("write script %s: %w", name, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace script %s: %w", name, err)
	}
	w.log.Debug().Str("path", path).Msg("wrote helper script")
	return nil
}

const shPreamble = `#!/usr/bin/env bash
set -euo pipefail

SCRIPT_DIR="$(cd "$(dirname "${BASH_SOURCE[0]}")" && pwd)"
ROOT_DIR="$(cd "${SCRIPT_DIR}/.." && pwd)"

VENV_DIR="${ROOT_DIR}/venv"
PY="${VENV_DIR}/bin/python"
ODOO_BIN="${ROOT_DIR}/odoo/odoo-bin"
CONF="${ROOT_DIR}/odoo-configs/odoo-server.conf"

if [[ ! -d "${VENV_DIR}" ]]; then
  echo "ERROR: required venv directory not found at ${VENV_DIR}" >&2
  exit 1
fi
`

func renderSh(spec scriptSpec) string {
	var b strings.Builder
	b.WriteString(shPreamble)
	if spec.venvBin == "" {
		b.WriteString(`if [[ ! -x "${PY}" ]]; then
  echo "ERROR: venv python not found/executable at ${PY}" >&2
  exit 1
fi
if [[ ! -f "${ODOO_BIN}" ]]; then
  echo "ERROR: odoo-bin not found at ${ODOO_BIN}" >&2
  exit 1
fi

`)
		fmt.Fprintf(&b, "echo \"INFO: %s using config ${CONF}. Passing through any extra arguments.\"\n", spec.info)
		fmt.Fprintf(&b, "exec \"${PY}\" \"${ODOO_BIN}\" %s \"$@\"\n", spec.args)
		return b.String()
	}

	fmt.Fprintf(&b, "BIN=\"${VENV_DIR}/bin/%s\"\n", spec.venvBin)
	fmt.Fprintf(&b, `if [[ ! -x "${BIN}" ]]; then
  echo "ERROR: %s not found/executable at ${BIN}" >&2
  exit 1
fi
if [[ ! -f "${CONF}" ]]; then
  echo "ERROR: Odoo config not found at ${CONF}" >&2
  exit 1
fi

`, spec.venvBin)
	fmt.Fprintf(&b, "echo \"INFO: %s using config ${CONF}. Passing through any extra arguments.\"\n", spec.info)
	fmt.Fprintf(&b, "exec \"${BIN}\" %s \"$@\"\n", spec.args)
	return b.String()
}

const batPreamble = `@echo off
setlocal enabledelayedexpansion

set SCRIPT_DIR=%~dp0
if "%SCRIPT_DIR:~-1%"=="\" set SCRIPT_DIR=%SCRIPT_DIR:~0,-1%
for %%I in ("%SCRIPT_DIR%\..") do set ROOT_DIR=%%~fI

set VENV_DIR=%ROOT_DIR%\venv
set PY=%VENV_DIR%\Scripts\python.exe
set ODOO_BIN=%ROOT_DIR%\odoo\odoo-bin
set CONF=%ROOT_DIR%\odoo-configs\odoo-server.conf

if not exist "%VENV_DIR%" (
  echo ERROR: required venv directory not found at %VENV_DIR%
  exit /b 1
)
`

func renderBat(spec scriptSpec) string {
	args := strings.ReplaceAll(spec.args, `"${CONF}"`, `"%CONF%"`)
	var b strings.Builder
	b.WriteString(batPreamble)
	if spec.venvBin == "" {
		b.WriteString(`if not exist "%PY%" (
  echo ERROR: venv python not found at %PY%
  exit /b 1
)
if not exist "%ODOO_BIN%" (
  echo ERROR: odoo-bin not found at %ODOO_BIN%
  exit /b 1
)

`)
		fmt.Fprintf(&b, "echo INFO: %s using config %%CONF%%. Passing through any extra arguments.\n", spec.info)
		fmt.Fprintf(&b, "\"%%PY%%\" \"%%ODOO_BIN%%\" %s %%*\n\nendlocal\n", args)
		return b.String()
	}

	fmt.Fprintf(&b, "set BIN=%%VENV_DIR%%\\Scripts\\%s.exe\n", spec.venvBin)
	fmt.Fprintf(&b, `if not exist "%%BIN%%" (
  echo ERROR: %s not found at %%BIN%%
  exit /b 1
)
if not exist "%%CONF%%" (
  echo ERROR: Odoo config not found at %%CONF%%
  exit /b 1
)

`, spec.venvBin)
	fmt.Fprintf(&b, "echo INFO: %s using config %%CONF%%. Passing through any extra arguments.\n", spec.info)
	fmt.Fprintf(&b, "\"%%BIN%%\" %s %%*\n\nendlocal\n", args)
	return b.String()
}

func renderBackupSh(dbName string) string {
	return shPreamble + fmt.Sprintf(`BACKUPS_DIR="${ROOT_DIR}/odoo-backups"
BACKUP_BIN="${VENV_DIR}/bin/click-odoo-backupdb"

TODAY=$(date +%%Y%%m%%d)
TIME=$(date +%%H%%M%%S)
BACKUP_FILENAME="%[1]s_${TODAY}_${TIME}.zip"
FULL_BACKUP_PATH="${BACKUPS_DIR}/${BACKUP_FILENAME}"

if [[ ! -d "${BACKUPS_DIR}" ]]; then
  echo "ERROR: required odoo-backups directory not found at ${BACKUPS_DIR}" >&2
  exit 1
fi
if [[ ! -x "${BACKUP_BIN}" ]]; then
  echo "ERROR: click-odoo-backupdb not found/executable at ${BACKUP_BIN}" >&2
  exit 1
fi

echo "INFO: Creating new backup '${FULL_BACKUP_PATH}' using config ${CONF}. Passing through any extra arguments."
exec "${BACKUP_BIN}" -c "${CONF}" --format zip %[1]q "${FULL_BACKUP_PATH}" --log-level debug "$@"
`, dbName)
}

func renderBackupBat(dbName string) string {
	return batPreamble + fmt.Sprintf(`set BACKUPS_DIR=%%ROOT_DIR%%\odoo-backups
set BACKUP_BIN=%%VENV_DIR%%\Scripts\click-odoo-backupdb.exe

for /f "tokens=2 delims==" %%%%I in ('wmic os get localdatetime /value') do set DT=%%%%I
set BACKUP_FILENAME=%[1]s_%%DT:~0,8%%_%%DT:~8,6%%.zip
set FULL_BACKUP_PATH=%%BACKUPS_DIR%%\%%BACKUP_FILENAME%%

if not exist "%%BACKUPS_DIR%%" (
  echo ERROR: required odoo-backups directory not found at %%BACKUPS_DIR%%
  exit /b 1
)
if not exist "%%BACKUP_BIN%%" (
  echo ERROR: click-odoo-backupdb not found at %%BACKUP_BIN%%
  exit /b 1
)

echo INFO: Creating new backup "%%FULL_BACKUP_PATH%%" using config %%CONF%%. Passing through any extra arguments.
"%%BACKUP_BIN%%" -c "%%CONF%%" --format zip "%[1]s" "%%FULL_BACKUP_PATH%%" --log-level debug %%*

endlocal
`, dbName)
}

const instanceSh = shPreamble + `if [[ ! -x "${PY}" ]]; then
  echo "ERROR: venv python not found/executable at ${PY}" >&2
  exit 1
fi
if [[ ! -f "${ODOO_BIN}" ]]; then
  echo "ERROR: odoo-bin not found at ${ODOO_BIN}" >&2
  exit 1
fi

LOGS_DIR="${ROOT_DIR}/odoo-logs"
LOG_FILE="${LOGS_DIR}/odoo-server.log"
PID_FILE="${LOGS_DIR}/odoo-server.pid"

is_running() {
  if [[ -f "${PID_FILE}" ]]; then
    local pid
    pid="$(cat "${PID_FILE}" 2>/dev/null || true)"
    if [[ -n "${pid}" ]] && kill -0 "${pid}" 2>/dev/null; then
      echo "${pid}"
      return 0
    fi
  fi
  return 1
}

start() {
  mkdir -p "${LOGS_DIR}"

  local pid
  if pid="$(is_running)"; then
    echo "INFO: Odoo already running (PID=${pid})"
    return 0
  fi

  echo "----- $(date -Is) START -----" >> "${LOG_FILE}"
  nohup "${PY}" "${ODOO_BIN}" -c "${CONF}" "$@" >> "${LOG_FILE}" 2>&1 &

  pid=$!
  echo "${pid}" > "${PID_FILE}"
  echo "INFO: Started Odoo (PID=${pid}). Logging to ${LOG_FILE}"
}

stop() {
  mkdir -p "${LOGS_DIR}"

  local pid
  if pid="$(is_running)"; then
    echo "INFO: Stopping Odoo (PID=${pid})"
    kill "${pid}" 2>/dev/null || true

    for _ in {1..30}; do
      if kill -0 "${pid}" 2>/dev/null; then
        sleep 1
      else
        break
      fi
    done

    if kill -0 "${pid}" 2>/dev/null; then
      echo "WARN: Odoo did not stop gracefully; sending SIGKILL" >&2
      kill -9 "${pid}" 2>/dev/null || true
    fi

    rm -f "${PID_FILE}"
    echo "INFO: Stopped."
    return 0
  fi

  rm -f "${PID_FILE}"
  echo "INFO: Odoo not running."
}

status() {
  local pid
  if pid="$(is_running)"; then
    echo "${pid}"
    return 0
  fi
  echo "NOT RUNNING" >&2
  return 1
}

cmd="${1:-}"
shift || true

case "${cmd}" in
  start)
    start "$@"
    ;;
  stop)
    stop
    ;;
  restart)
    stop
    start "$@"
    ;;
  status)
    status
    ;;
  *)
    echo "Usage: $(basename "$0") {start|stop|restart|status} [odoo args...]" >&2
    exit 2
    ;;
esac
`
