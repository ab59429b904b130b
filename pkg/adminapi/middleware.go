// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package adminapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/theia-log/theia/pkg/logger"
)

// requestIDHeader is the header carrying (or receiving) the per-request
// correlation id logged alongside every admin-API request.
const requestIDHeader = "X-Request-ID"

func completeRequestID(req *http.Request) (context.Context, string) {
	requestID := req.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	reqCtx := logger.WithContextFields(req.Context(), requestIDHeader, requestID)
	return reqCtx, requestID
}

// requestIDMiddleware stamps every request with a correlation id (reusing
// one supplied by the caller, if any) and logs the request line.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCtx, requestID := completeRequestID(c.Request)
		c.Request = c.Request.WithContext(reqCtx)
		c.Writer.Header().Set(requestIDHeader, requestID)
		logger.InfoContextf(reqCtx, "admin request: %s %s", c.Request.Method, c.Request.URL.String())
		c.Next()
	}
}
