package events

import "github.com/atomicstack/shell-script-manager/internal/logging"

type RunnerTracer struct{}

var Runner = RunnerTracer{}

func (RunnerTracer) Start(mode, shell, command string) {
	logging.Trace("runner.start", map[string]interface{}{"mode": mode, "shell": shell, "command": command})
}

func (RunnerTracer) Output(stream, text string) {
	logging.Trace("runner.output", map[string]interface{}{"stream": stream, "text": text})
}

func (RunnerTracer) Exit(command string, code int) {
	logging.Trace("runner.exit", map[string]interface{}{"command": command, "code": code})
}
