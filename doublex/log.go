/*
 * Copyright 2020 grant@lastweekend.com.au
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package doublex

import (
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevelEnv names the environment variable holding the level of the default logger (eg "debug")
const LogLevelEnv = "DOUBLEX_LOG_LEVEL"

// DefaultLogger is used by doubles created without WithLogger.
//
// It logs to stderr at Info level unless overridden by DOUBLEX_LOG_LEVEL.
var DefaultLogger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if envLevel := os.Getenv(LogLevelEnv); envLevel != "" {
		level, err := logrus.ParseLevel(envLevel)
		if err != nil {
			l.WithError(err).Warnf("ignoring %s", LogLevelEnv)
		} else {
			l.SetLevel(level)
		}
	}
	return l
}

// logDispatch records the outcome of one dispatch. Traced doubles log at Info, others at Debug.
func (d *Double) logDispatch(call *RecordedCall, branch string, trace bool, value interface{}, err error) {
	entry := d.log.WithFields(logrus.Fields{
		"call":   d.render(call),
		"branch": branch,
		"seq":    call.tick,
	})
	level := logrus.DebugLevel
	if trace {
		level = logrus.InfoLevel
	}
	if err != nil {
		entry.WithError(err).Log(level, "dispatch failed")
		return
	}
	entry.WithField("result", renderValue(value)).Log(level, "dispatched")
}
