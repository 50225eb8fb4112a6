package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows the registered API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                     - Health check")
	fmt.Println("  GET    /stats                      - Server statistics")
	if s.deps.Questions != nil {
		fmt.Println("  POST   /api/process-questions      - Answer form questions (requires API key)")
	}
	if s.deps.CoverLetters != nil {
		fmt.Println("  POST   /api/generate-cover-letter  - Write a cover letter (requires API key)")
	}
	if s.deps.Choices != nil {
		fmt.Println("  POST   /api/radio/answer           - Pick one option (requires API key)")
		fmt.Println("  POST   /api/checkbox/answer        - Pick options (requires API key)")
	}
	if s.deps.Applications != nil {
		fmt.Println("  POST   /api/applications           - Track an application (requires API key)")
		fmt.Println("  PATCH  /api/applications/{id}      - Update application status (requires API key)")
	}
	if s.deps.Auth != nil {
		fmt.Println("  POST   /api/auth/email             - Request a verification email")
		fmt.Println("  GET    /api/auth/verify            - Verify an email token")
	}
	if s.deps.Auth != nil && s.deps.Resumes != nil {
		fmt.Println("  GET    /api/resume/upload-url      - Signed upload URL (requires verified token)")
		fmt.Println("  GET    /api/resume                 - List resumes (requires verified token)")
		fmt.Println("  GET    /api/resume/{fileId}        - Signed read URL (requires verified token)")
		fmt.Println("  DELETE /api/resume/{fileId}        - Delete a resume (requires verified token)")
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api routes")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
	if len(s.AllowedOrigins) > 0 {
		fmt.Printf("CORS: %d allowed origins\n", len(s.AllowedOrigins))
	} else {
		fmt.Println("CORS: all origins allowed")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
