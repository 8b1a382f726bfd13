// Package logger provides structured logging for foundation hosts using
// zerolog.
//
// Loggers are built from channels. A channel names a driver (errorlog,
// stdout, single, null) plus its level and file options; the "log" concern
// of a provider.Registry picks the default channel from configuration:
//
//	log:
//	  default: single
//	  channels:
//	    single:
//	      driver: single
//	      path: /var/log/sdk.log
//	      level: info
//
// With no log configuration at all the errorlog channel (stderr, debug) is
// used. With only log.file and log.level set, a single file channel is
// derived from them.
package logger
