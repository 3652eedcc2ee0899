// Package fulfillment delivers the report a buyer paid for.
//
// Redeem exchanges a download token for the document. Deliver emails it
// once payment completes. Both scan the page on first use and cache the
// rendered document on the payment session. Concurrent requests for the
// same session share one scan.
package fulfillment
