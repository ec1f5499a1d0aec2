package store

import "time"

// nowFunc is a variable (not a direct time.Now call) so tests can stub
// clock-dependent expiry checks without sleeping.
var nowFunc = time.Now
