package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/syslog"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logrusSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

type Logger struct {
	*logrus.Logger
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func NewLogger(c *utils.Config) *Logger {
	log := logrus.New()
	log.SetLevel(parseLevel(c.LogLevel))
	log.SetFormatter(&logrus.JSONFormatter{PrettyPrint: c.Env == "development"})

	if c.Papertrail != "" {
		hook, err := logrusSyslog.NewSyslogHook("udp", c.Papertrail, syslog.LOG_INFO, c.PapertrailAppName)
		if err != nil {
			log.Error("Unable to connect to Papertrail")
		} else {
			log.Hooks.Add(hook)
		}
	}

	return &Logger{
		log,
	}
}

// NewDiscardLogger swallows everything. Used by tests and by components
// constructed without a logger.
func NewDiscardLogger() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{log}
}

func parseLevel(level string) logrus.Level {
	if level == "" {
		return logrus.DebugLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.DebugLevel
	}
	return lvl
}

func (l *Logger) LoggingMiddleWare() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = c.GetRawData()
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		var requestJson interface{}
		if len(requestBody) > 0 {
			if err := json.Unmarshal(requestBody, &requestJson); err != nil {
				l.Log(logrus.DebugLevel, "error unmarshalling requestBody, request may not be JSON")
			}
		}

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   statusCode,
			"duration": duration,
		}

		// Only log request body if it's small to avoid polluting logs with large payloads
		if len(requestBody) < 250 {
			fields["request"] = requestJson
		}
		if statusCode >= 400 && w.body.Len() < 250 {
			var responseJson interface{}
			if err := json.Unmarshal(w.body.Bytes(), &responseJson); err == nil {
				fields["response"] = responseJson
			}
		}

		l.WithFields(fields).Info("Request-Response")
	}
}
