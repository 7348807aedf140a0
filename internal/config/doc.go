// Package config loads retain.json, the configuration file read by the
// retain command.
//
//	{
//	  "name": "todo",
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "webSocketPath": "/ws",
//	    "maxSessions": 500,
//	    "heartbeatInterval": "30s"
//	  },
//	  "runtime": {
//	    "coalesce": true
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "path": "/metrics"
//	  },
//	  "publish": {
//	    "bucket": "snapshots",
//	    "prefix": "todo/",
//	    "region": "eu-west-1"
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  }
//	}
//
// Durations are Go duration strings. Missing fields take the defaults of
// New, and Load validates the result.
package config
