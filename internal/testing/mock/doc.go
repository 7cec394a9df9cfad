// Package mock provides test doubles for Helix's auth components.
//
// Key Components:
//
// Clock: a controllable clock satisfying auth.Clock, so tests can move
// into the refresh window or past a token's expiry without sleeping.
//
// IdentityClient: an in-memory auth.IdentityClient. Tests seed cached
// accounts, script silent-refresh outcomes with SetSilent, and complete or
// fail device-code flows explicitly through the DeviceCodeFlow values it
// hands out:
//
//	idp := mock.NewIdentityClient()
//	mgr, _ := auth.NewLoginManager(idp, scopes)
//	res, _ := mgr.Start(ctx)
//	idp.Flows()[0].Succeed(account, token)
//
// Nothing here talks to the network or the OS keyring.
package mock
