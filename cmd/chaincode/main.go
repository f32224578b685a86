/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"go.uber.org/zap"

	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/config"
	"github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/internal/log"
	chaincode "github.com/hyperledger/fabric-samples/nft-escrow/chaincode-go/smart-contract"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to init config: %v\n", err)
		os.Exit(1)
	}
	logger, err := log.NewLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	escrowChaincode, err := chaincode.NewChaincode()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Error creating nft escrow chaincode")
	}

	go health(cfg.HealthPort)

	if !cfg.AsService() {
		zap.L().Info("Starting nft escrow chaincode")
		if err := escrowChaincode.Start(); err != nil {
			zap.L().With(zap.Error(err)).Fatal("Error starting nft escrow chaincode")
		}
		return
	}

	tlsProps, err := tlsProperties(cfg)
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Unable to read chaincode TLS material")
	}
	server := &shim.ChaincodeServer{
		CCID:     cfg.ChaincodeID,
		Address:  cfg.ServerAddress,
		CC:       escrowChaincode,
		TLSProps: tlsProps,
	}
	zap.L().With(zap.String("address", cfg.ServerAddress), zap.String("ccid", cfg.ChaincodeID)).Info("Starting nft escrow chaincode server")
	if err := server.Start(); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Error starting nft escrow chaincode server")
	}
}

func tlsProperties(cfg *config.Config) (shim.TLSProperties, error) {
	if cfg.TLSDisabled {
		return shim.TLSProperties{Disabled: true}, nil
	}
	key, err := os.ReadFile(cfg.TLSKey)
	if err != nil {
		return shim.TLSProperties{}, err
	}
	cert, err := os.ReadFile(cfg.TLSCert)
	if err != nil {
		return shim.TLSProperties{}, err
	}
	var clientCA []byte
	if cfg.ClientCA != "" {
		if clientCA, err = os.ReadFile(cfg.ClientCA); err != nil {
			return shim.TLSProperties{}, err
		}
	}
	return shim.TLSProperties{Key: key, Cert: cert, ClientCACerts: clientCA}, nil
}

func health(port string) {
	zap.L().With(zap.String("port", port)).Info("Serving health checks")
	if err := http.ListenAndServe(":"+port, router()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health server")
	}
}

func router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
