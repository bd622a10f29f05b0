package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/lexis-api/internal/api/shared"
	"github.com/phrazzld/lexis-api/internal/platform/logger"
)

// LearnerIDHeader names the header the upstream gateway sets after
// authenticating the learner.
const LearnerIDHeader = "X-Learner-ID"

var errMissingLearnerID = errors.New("learner id header missing")

// LearnerIdentity resolves the learner from LearnerIDHeader and stores the
// id in the request context. Requests without a positive integer id are
// rejected with 401.
func LearnerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(LearnerIDHeader)
		if raw == "" {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized,
				"Missing learner identity", errMissingLearnerID)
			return
		}

		learnerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || learnerID <= 0 {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized,
				"Invalid learner identity", err, shared.WithElevatedLogLevel())
			return
		}

		ctx := shared.SetLearnerID(r.Context(), learnerID)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(slog.Int64("learner_id", learnerID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
